package notifier

import (
	"context"
	"fmt"
	"time"

	"PriceArchiver/internal/logger"

	"github.com/wneessen/go-mail"
)

// Mailer delivers a single alert message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPSettings holds what SMTPMailer needs to deliver mail.
type SMTPSettings struct {
	Host          string
	Port          int
	Username      string
	Password      string
	To            string
	SubjectPrefix string
	Timeout       time.Duration
}

// SMTPMailer sends mail through an SMTP server that must offer STARTTLS.
type SMTPMailer struct {
	settings SMTPSettings
}

// NewSMTPMailer creates a mailer. The sender address is the SMTP username.
func NewSMTPMailer(s SMTPSettings) *SMTPMailer {
	return &SMTPMailer{settings: s}
}

func (m *SMTPMailer) message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.settings.Username); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(m.settings.To); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(m.settings.SubjectPrefix + subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	msg, err := m.message(subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.settings.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.settings.Username),
		mail.WithPassword(m.settings.Password),
	}
	if m.settings.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.settings.Timeout))
	}
	client, err := mail.NewClient(m.settings.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// NoopMailer drops every message. It is used when email is disabled.
type NoopMailer struct {
	Log *logger.Logger
}

func (n NoopMailer) Send(_ context.Context, subject, _ string) error {
	if n.Log != nil {
		n.Log.Debugf("Email disabled, skipping message %q", subject)
	}
	return nil
}
