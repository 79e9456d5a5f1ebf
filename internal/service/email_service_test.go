package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givto/internal/models"
)

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
}

func (m *flakyMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	if m.calls <= m.failures {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestDispatcher(mailer Mailer, attempts int) *MailDispatcher {
	d := NewMailDispatcher(mailer, MessageBuilder{AppName: "Givto", AppBaseURL: "https://givto.test"}, attempts, time.Second, false)
	d.backoff = 0
	return d
}

func TestMailDispatcherRetries(t *testing.T) {
	mailer := &flakyMailer{failures: 2}
	d := newTestDispatcher(mailer, 3)

	d.LoginCodeIssued(context.Background(), "ann@example.com", "ABCDEFGHJK", time.Now().Add(15*time.Minute))
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 3, mailer.calls)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ann@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].TextBody, "ABCDE-FGHJK")
}

func TestMailDispatcherGivesUp(t *testing.T) {
	mailer := &flakyMailer{failures: 10}
	d := newTestDispatcher(mailer, 3)

	d.Dispatch(context.Background(), Message{To: "ann@example.com", Subject: "hi"})
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 3, mailer.calls, "attempts are bounded")
	assert.Empty(t, mailer.sent)
}

func TestMailDispatcherIgnoresCallerCancellation(t *testing.T) {
	mailer := &flakyMailer{}
	d := newTestDispatcher(mailer, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, Message{To: "ann@example.com", Subject: "hi"})
	require.NoError(t, d.Wait(context.Background()))

	assert.Len(t, mailer.sent, 1)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailerBuildsRequest(t *testing.T) {
	client := &fakeSES{}
	mailer := newSESMailer(client, "noreply@givto.test", "Givto", false)

	err := mailer.Send(context.Background(), Message{To: "ann@example.com", Subject: "Subject", HTMLBody: "<p>x</p>", TextBody: "x"})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "Givto <noreply@givto.test>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"ann@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(client.input.Content.Simple.Subject.Data))
	assert.Equal(t, "x", aws.ToString(client.input.Content.Simple.Body.Text.Data))

	client.err = errors.New("throttled")
	err = mailer.Send(context.Background(), Message{To: "ann@example.com"})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewMailerDisabled(t *testing.T) {
	mailer, err := NewMailer(context.Background(), "us-east-1", "", "Givto", false)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, mailer)
	assert.NoError(t, mailer.Send(context.Background(), Message{To: "ann@example.com"}))
}

func TestMessageBuilderInvite(t *testing.T) {
	b := MessageBuilder{AppName: "Givto", AppBaseURL: "https://givto.test"}
	msg := b.Invite("bob@example.com", "Bob", "Ann", &models.Group{Slug: "dev-team", Name: "Dev <Team>"})

	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "Ann invited you to Dev <Team>", msg.Subject)
	assert.Contains(t, msg.TextBody, "https://givto.test/groups/dev-team")
	assert.Contains(t, msg.HTMLBody, "Dev &lt;Team&gt;")
	assert.NotContains(t, msg.HTMLBody, "Dev <Team>")
}
