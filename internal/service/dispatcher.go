package service

import (
	"context"
	"log"
	"sync"
	"time"

	"givto/internal/models"
)

// Notifier receives the outgoing notifications of the auth and group services.
// Implementations must not block the caller.
type Notifier interface {
	LoginCodeIssued(ctx context.Context, email, code string, expiresAt time.Time)
	InviteCreated(ctx context.Context, email, inviteeName, inviterName string, group *models.Group)
}

// MailDispatcher delivers notifications by email in the background with bounded retries.
// Failures are logged and never reported to the caller.
type MailDispatcher struct {
	mailer   Mailer
	builder  MessageBuilder
	attempts int
	timeout  time.Duration
	backoff  time.Duration
	debug    bool
	wg       sync.WaitGroup
}

// NewMailDispatcher creates a dispatcher making up to attempts tries per
// message, each bounded by timeout
func NewMailDispatcher(mailer Mailer, builder MessageBuilder, attempts int, timeout time.Duration, debug bool) *MailDispatcher {
	if attempts < 1 {
		attempts = 1
	}
	return &MailDispatcher{
		mailer:   mailer,
		builder:  builder,
		attempts: attempts,
		timeout:  timeout,
		backoff:  500 * time.Millisecond,
		debug:    debug,
	}
}

// LoginCodeIssued sends the login code email
func (d *MailDispatcher) LoginCodeIssued(ctx context.Context, email, code string, expiresAt time.Time) {
	d.Dispatch(ctx, d.builder.LoginCode(email, code, expiresAt))
}

// InviteCreated sends the invitation email
func (d *MailDispatcher) InviteCreated(ctx context.Context, email, inviteeName, inviterName string, group *models.Group) {
	d.Dispatch(ctx, d.builder.Invite(email, inviteeName, inviterName, group))
}

// Dispatch queues msg for delivery and returns immediately. Delivery is
// detached from ctx cancellation so a finished request does not abort it.
func (d *MailDispatcher) Dispatch(ctx context.Context, msg Message) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(detached, msg)
	}()
}

func (d *MailDispatcher) deliver(ctx context.Context, msg Message) {
	for attempt := 1; attempt <= d.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.mailer.Send(attemptCtx, msg)
		cancel()
		if err == nil {
			if d.debug && attempt > 1 {
				log.Printf("[DEBUG] Email to %s delivered on attempt %d", msg.To, attempt)
			}
			return
		}

		log.Printf("Email delivery attempt %d/%d to %s failed: %v", attempt, d.attempts, msg.To, err)
		if attempt < d.attempts && d.backoff > 0 {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
	log.Printf("Giving up on email to %s: %q", msg.To, msg.Subject)
}

// Wait blocks until queued deliveries finish or ctx is done
func (d *MailDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
