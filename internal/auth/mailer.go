// internal/auth/mailer.go
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/wneessen/go-mail"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an authenticated SMTP relay over STARTTLS.
type SMTPMailer struct {
	from string
	send func(ctx context.Context, msgs ...*mail.Msg) error
}

// NewSMTPMailer creates a mailer for addr (host:port) authenticating as user.
func NewSMTPMailer(addr, user, password string) (*SMTPMailer, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", rawPort, err)
	}

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{from: user, send: client.DialAndSendWithContext}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg, err := m.message(to, subject, body)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("mail sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// LogMailer writes mail to the log instead of sending it. It is used when no
// SMTP credentials are configured.
type LogMailer struct {
	Logger *slog.Logger
}

// The body carries live reset codes, so it is only logged at debug level.
func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.Logger.Info("mail not sent, no smtp credentials configured", "to", to, "subject", subject)
	m.Logger.Debug("unsent mail body", "to", to, "body", body)
	return nil
}
