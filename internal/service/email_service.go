package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"givto/internal/credentials"
	"givto/internal/models"
)

// Message is one outgoing email
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers a single message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// sesAPI is the part of the SES client the mailer uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends email through Amazon SES
type SESMailer struct {
	client    sesAPI
	fromEmail string
	fromName  string
	debug     bool
}

// NewMailer returns an SES mailer, or a LogMailer when fromEmail is empty
func NewMailer(ctx context.Context, awsRegion, fromEmail, fromName string, debug bool) (Mailer, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will log messages instead of sending them")
		}
		return &LogMailer{Debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newSESMailer(sesv2.NewFromConfig(cfg), fromEmail, fromName, debug), nil
}

func newSESMailer(client sesAPI, fromEmail, fromName string, debug bool) *SESMailer {
	return &SESMailer{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		debug:     debug,
	}
}

// Send sends a message using Amazon SES
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	if m.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", msg.To, msg.Subject)
	return nil
}

// LogMailer stands in for SES when sending is disabled
type LogMailer struct {
	Debug bool
}

// Send logs the message instead of delivering it
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("Skipping email send (service disabled): %q to %s", msg.Subject, msg.To)
	if m.Debug {
		log.Printf("[DEBUG] Email body:\n%s", msg.TextBody)
	}
	return nil
}

// MessageBuilder renders the emails the service sends
type MessageBuilder struct {
	AppName    string
	AppBaseURL string
}

// LoginCode renders the email carrying a login code
func (b MessageBuilder) LoginCode(email, code string, expiresAt time.Time) Message {
	display := credentials.FormatLoginCode(code)
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	subject := fmt.Sprintf("Your %s login code: %s", b.AppName, display)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Enter this code to log in to %s:</p>
	<p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
	<p>The code expires in %d minutes and can be used once.</p>
	<p>If you didn't ask for a code, you can safely ignore this email.</p>
</body>
</html>
`, b.AppName, display, minutes)
	textBody := fmt.Sprintf(`Enter this code to log in to %s:

%s

The code expires in %d minutes and can be used once.

If you didn't ask for a code, you can safely ignore this email.
`, b.AppName, display, minutes)

	return Message{To: email, Subject: subject, HTMLBody: htmlBody, TextBody: textBody}
}

// Invite renders the email telling an invitee about a new group
func (b MessageBuilder) Invite(email, inviteeName, inviterName string, group *models.Group) Message {
	link := fmt.Sprintf("%s/groups/%s", b.AppBaseURL, url.PathEscape(group.Slug))
	greeting := "Hi"
	if inviteeName != "" {
		greeting = "Hi " + inviteeName
	}
	if inviterName == "" {
		inviterName = "Someone"
	}

	subject := fmt.Sprintf("%s invited you to %s", inviterName, group.Name)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>%s,</p>
	<p>%s invited you to the gift exchange <strong>%s</strong> on %s.</p>
	<p><a href="%s">Join the group</a></p>
	<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
</body>
</html>
`, html.EscapeString(greeting), html.EscapeString(inviterName), html.EscapeString(group.Name),
		html.EscapeString(b.AppName), html.EscapeString(link), html.EscapeString(link))
	textBody := fmt.Sprintf(`%s,

%s invited you to the gift exchange "%s" on %s.

Join the group: %s
`, greeting, inviterName, group.Name, b.AppName, link)

	return Message{To: email, Subject: subject, HTMLBody: htmlBody, TextBody: textBody}
}
