// Package notify funnels every outbound patient SMS and staff email
// through the message ledger, so each (appointment, channel, template)
// slot is attempted at most once per recorded outcome.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/message"
	"github.com/atwonio16/noshowdentalclinic/internal/sms"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Ledger is the slice of the message ledger the notifier needs.
type Ledger interface {
	Reserve(ctx context.Context, appointmentID uuid.UUID, channel message.Channel, template message.Template, to string) (message.Decision, error)
	Finalize(ctx context.Context, appointmentID uuid.UUID, channel message.Channel, template message.Template, providerMessageID, deliveryStatus string, raw []byte) error
}

// ManagerDirectory resolves the staff contact for a clinic.
type ManagerDirectory interface {
	ManagerContact(ctx context.Context, clinicID uuid.UUID) (*clinic.Manager, error)
}

// Notifier sends ledgered notifications.
type Notifier struct {
	ledger           Ledger
	smsProvider      sms.Provider
	emailSender      email.Sender
	managers         ManagerDirectory
	logger           *logging.Logger
	sendConfirmedAck bool
}

func New(ledger Ledger, smsProvider sms.Provider, emailSender email.Sender, managers ManagerDirectory, logger *logging.Logger, sendConfirmedAck bool) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		ledger:           ledger,
		smsProvider:      smsProvider,
		emailSender:      emailSender,
		managers:         managers,
		logger:           logger,
		sendConfirmedAck: sendConfirmedAck,
	}
}

// Reserve claims the SMS slot without sending. Callers that have
// per-send setup work (issuing tokens, building links) reserve first so
// a Skip leaves that state untouched.
func (n *Notifier) Reserve(ctx context.Context, appointmentID uuid.UUID, template message.Template, to string) (message.Decision, error) {
	return n.ledger.Reserve(ctx, appointmentID, message.ChannelSMS, template, to)
}

// Deliver sends body over SMS and finalizes the already-reserved slot.
// A transport failure is finalized as failed and returned; the slot
// becomes eligible again on the next run.
func (n *Notifier) Deliver(ctx context.Context, appointmentID uuid.UUID, template message.Template, to, body string) error {
	result, err := n.smsProvider.Send(ctx, to, body)
	if err != nil {
		n.finalizeFailed(ctx, appointmentID, message.ChannelSMS, template, err)
		return err
	}
	if ferr := n.ledger.Finalize(ctx, appointmentID, message.ChannelSMS, template, result.ProviderMessageID, result.DeliveryStatus, result.Raw); ferr != nil {
		return ferr
	}
	return nil
}

// SendSMS reserves and delivers in one step. It reports whether a send
// was attempted.
func (n *Notifier) SendSMS(ctx context.Context, appointmentID uuid.UUID, template message.Template, to, body string) (bool, error) {
	decision, err := n.Reserve(ctx, appointmentID, template, to)
	if err != nil {
		return false, err
	}
	if decision == message.Skip {
		return false, nil
	}
	return true, n.Deliver(ctx, appointmentID, template, to, body)
}

// SendConfirmedAckIfEnabled texts the patient that their confirmation
// was recorded. Governed by SEND_CONFIRMED_ACK; disabled is a no-op.
func (n *Notifier) SendConfirmedAckIfEnabled(ctx context.Context, loc *time.Location, a *appointment.Appointment) error {
	if !n.sendConfirmedAck {
		return nil
	}
	body := sms.ConfirmedAck(a.StartAt, loc)
	_, err := n.SendSMS(ctx, a.ID, message.TemplateConfirmedAck, a.Phone, body)
	return err
}

// SendClinicCancelNotice emails the clinic manager about a cancellation.
// A clinic without a manager contact is logged and skipped; patients
// should not see errors because staff onboarding is incomplete.
func (n *Notifier) SendClinicCancelNotice(ctx context.Context, loc *time.Location, c *clinic.Clinic, a *appointment.Appointment, reason email.CancelReason) error {
	manager, err := n.managers.ManagerContact(ctx, c.ID)
	if err != nil {
		return err
	}
	if manager == nil || manager.Email == "" {
		n.logger.Warn("clinic cancel notice skipped, manager email missing",
			"clinic_id", c.ID, "appointment_id", a.ID)
		return nil
	}

	decision, err := n.ledger.Reserve(ctx, a.ID, message.ChannelEmail, message.TemplateClinicCancelNotice, manager.Email)
	if err != nil {
		return err
	}
	if decision == message.Skip {
		return nil
	}

	subject, body := email.ClinicCancelNotice(email.ClinicCancelNoticeInput{
		ClinicName:      c.Name,
		StartAt:         a.StartAt,
		Location:        loc,
		AppointmentType: a.AppointmentType,
		PatientName:     a.PatientName,
		ProviderName:    a.ProviderName,
		Reason:          reason,
	})
	if err := n.emailSender.Send(ctx, email.Message{To: manager.Email, Subject: subject, Body: body}); err != nil {
		n.finalizeFailed(ctx, a.ID, message.ChannelEmail, message.TemplateClinicCancelNotice, err)
		return err
	}
	return n.ledger.Finalize(ctx, a.ID, message.ChannelEmail, message.TemplateClinicCancelNotice, "", message.StatusSent, nil)
}

func (n *Notifier) finalizeFailed(ctx context.Context, appointmentID uuid.UUID, channel message.Channel, template message.Template, cause error) {
	raw, _ := json.Marshal(map[string]string{"error": cause.Error()})
	if err := n.ledger.Finalize(ctx, appointmentID, channel, template, "", message.StatusFailed, raw); err != nil {
		n.logger.Error("finalize failed attempt", "error", err,
			"appointment_id", appointmentID, "channel", channel, "template", template)
	}
}
