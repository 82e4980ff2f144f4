package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned when no SMTP credentials were supplied at
// startup. Callers treat it like any other send failure: non-fatal.
var ErrNotConfigured = errors.New("mail transport not configured")

// Sender delivers a plain-text message. Implementations never retry and
// never queue; a failure is reported to the caller and that is the end of it.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTP sends mail over authenticated SMTPS using the gym's address as
// sender. Credentials are loaded once at startup; the client is immutable
// afterwards.
type SMTP struct {
	from   string
	client *mail.Client
}

// New builds the sender. An empty address or password leaves the transport
// disabled: Send reports ErrNotConfigured instead of attempting delivery.
func New(host string, port int, from, password string) (*SMTP, error) {
	if from == "" || password == "" {
		return &SMTP{}, nil
	}
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(from),
		mail.WithPassword(password),
		mail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &SMTP{from: from, client: client}, nil
}

// Enabled reports whether credentials were configured.
func (s *SMTP) Enabled() bool { return s.client != nil }

// Send delivers one message. Any transport failure comes back as the error;
// nothing is retried or queued.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}
