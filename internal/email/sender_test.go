package email

import (
	"context"
	"testing"

	"github.com/atwonio16/noshowdentalclinic/internal/config"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

func TestNewFromConfigFailsFastOnUnknownProvider(t *testing.T) {
	cfg := &config.Config{EmailProvider: "mailgun"}
	if _, err := NewFromConfig(cfg, logging.Default()); err == nil {
		t.Fatal("expected error for unknown provider name")
	}
}

func TestNewFromConfigFailsFastOnIncompleteSendGrid(t *testing.T) {
	cfg := &config.Config{EmailProvider: "sendgrid", SendGridAPIKey: "sg-key"}
	if _, err := NewFromConfig(cfg, logging.Default()); err == nil {
		t.Fatal("expected error for missing sendgrid from email")
	}
}

func TestNewFromConfigFailsFastOnIncompleteSMTP(t *testing.T) {
	cfg := &config.Config{EmailProvider: "smtp", SMTPFrom: "no-reply@x.ro"}
	if _, err := NewFromConfig(cfg, logging.Default()); err == nil {
		t.Fatal("expected error for missing smtp host")
	}
}

func TestStubSenderNeverFails(t *testing.T) {
	cfg := &config.Config{EmailProvider: "stub"}
	sender, err := NewFromConfig(cfg, logging.Default())
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	err = sender.Send(context.Background(), Message{To: "manager@clinic.ro", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("stub send: %v", err)
	}
}
