package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Dummy logs instead of sending. It reports "sent" so the ledger
// records a completed delivery, which keeps local runs and demo
// environments from retrying forever.
type Dummy struct {
	logger *logging.Logger
}

var _ Provider = (*Dummy)(nil)

func NewDummy(logger *logging.Logger) *Dummy {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dummy{logger: logger}
}

func (d *Dummy) Send(_ context.Context, to, body string) (*Result, error) {
	d.logger.Info("dummy sms send", "to", to, "body", body)
	return &Result{
		ProviderMessageID: fmt.Sprintf("dummy-%d", time.Now().UnixMilli()),
		DeliveryStatus:    "sent",
		Raw:               []byte(`{"provider":"dummy"}`),
	}, nil
}
