// Package sms sends the patient-facing text messages. A Provider wraps
// one upstream gateway; the concrete one is chosen once at startup from
// configuration and misconfiguration is a constructor error, not a
// silent fallback.
package sms

import (
	"context"
	"fmt"

	"github.com/atwonio16/noshowdentalclinic/internal/config"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Result is what a gateway reported for one send attempt. Raw keeps the
// provider's response body for the ledger.
type Result struct {
	ProviderMessageID string
	DeliveryStatus    string
	Raw               []byte
}

// Provider delivers a single SMS.
type Provider interface {
	Send(ctx context.Context, to, body string) (*Result, error)
}

// NewFromConfig builds the provider named by SMS_PROVIDER. Naming a
// provider whose credentials are incomplete is a startup error; only
// an explicit "dummy" selects the no-op provider.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) (Provider, error) {
	switch cfg.SMSProvider {
	case "twilio":
		return NewTwilio(TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		})
	case "smso":
		return NewSmso(SmsoConfig{
			APIKey:  cfg.SmsoAPIKey,
			Sender:  cfg.SmsoSender,
			BaseURL: cfg.SmsoBaseURL,
		})
	case "dummy":
		return NewDummy(logger), nil
	default:
		return nil, fmt.Errorf("sms: unknown provider %q", cfg.SMSProvider)
	}
}
