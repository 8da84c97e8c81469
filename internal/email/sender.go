// Package email notifies clinic staff about cancellations. The sender
// backend is chosen once at startup; naming a backend whose settings
// are incomplete is a constructor error.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atwonio16/noshowdentalclinic/internal/config"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Message represents an email to be sent.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Sender defines the interface for sending emails. Implementations can
// be swapped (SendGrid, SMTP, stub) without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewFromConfig builds the sender named by EMAIL_PROVIDER.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) (Sender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" || strings.TrimSpace(cfg.SendGridFromEmail) == "" {
			return nil, errors.New("email: sendgrid api key and from email are required")
		}
		return NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), nil
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}, logger)
	case "stub":
		return NewStubSender(logger), nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.EmailProvider)
	}
}

// StubSender is a no-op sender for local runs or when email is
// disabled.
type StubSender struct {
	logger *logging.Logger
}

var _ Sender = (*StubSender)(nil)

func NewStubSender(logger *logging.Logger) *StubSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}
