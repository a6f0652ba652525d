package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const emailTimeout = 10 * time.Second

// SMTPConfig configures the email transport. An empty Host disables the
// channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPEmail sends plain-text mail over an authenticated SMTP connection.
type SMTPEmail struct {
	config SMTPConfig
}

// NewSMTPEmail creates the email transport, or nil when no host is
// configured.
func NewSMTPEmail(config SMTPConfig) *SMTPEmail {
	if config.Host == "" {
		return nil
	}

	return &SMTPEmail{config: config}
}

// Send delivers one plain-text message. The body lines are joined with
// newlines.
func (s *SMTPEmail) Send(ctx context.Context, to, subject string, bodyLines []string) error {
	message := mail.NewMsg()

	err := message.From(s.config.From)
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}

	err = message.To(to)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, strings.Join(bodyLines, "\n"))

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithTimeout(emailTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	err = client.DialAndSendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
