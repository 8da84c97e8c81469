package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// SMTPConfig holds configuration for a plain SMTP relay.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender sends emails through an SMTP relay using go-mail.
type SMTPSender struct {
	client *gomail.Client
	from   string
	logger *logging.Logger
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" || strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email: smtp host and from address are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Pass),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, logger: logger}, nil
}

// Send sends a plain text email through the relay.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("email: set from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("email: set to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Error("smtp send failed", "error", err, "to", msg.To)
		return fmt.Errorf("email: smtp send failed: %w", err)
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}
