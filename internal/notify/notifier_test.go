package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/message"
	"github.com/atwonio16/noshowdentalclinic/internal/sms"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

type finalizeCall struct {
	template message.Template
	status   string
}

type fakeLedger struct {
	decision  message.Decision
	reserves  int
	finalizes []finalizeCall
}

func (f *fakeLedger) Reserve(_ context.Context, _ uuid.UUID, _ message.Channel, _ message.Template, _ string) (message.Decision, error) {
	f.reserves++
	return f.decision, nil
}

func (f *fakeLedger) Finalize(_ context.Context, _ uuid.UUID, _ message.Channel, template message.Template, _, status string, _ []byte) error {
	f.finalizes = append(f.finalizes, finalizeCall{template: template, status: status})
	return nil
}

type fakeSMS struct {
	sends int
	err   error
}

func (f *fakeSMS) Send(_ context.Context, _, _ string) (*sms.Result, error) {
	f.sends++
	if f.err != nil {
		return nil, f.err
	}
	return &sms.Result{ProviderMessageID: "p-1", DeliveryStatus: "sent"}, nil
}

type fakeEmail struct {
	sent []email.Message
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeManagers struct {
	manager *clinic.Manager
}

func (f *fakeManagers) ManagerContact(_ context.Context, _ uuid.UUID) (*clinic.Manager, error) {
	return f.manager, nil
}

func testAppointment() *appointment.Appointment {
	return &appointment.Appointment{
		ID:              uuid.New(),
		ClinicID:        uuid.New(),
		Phone:           "+40712345678",
		AppointmentType: "consultatie",
		StartAt:         time.Date(2026, 7, 15, 11, 30, 0, 0, time.UTC),
	}
}

func newNotifier(ledger *fakeLedger, smsProvider *fakeSMS, emailSender *fakeEmail, managers *fakeManagers, ack bool) *Notifier {
	return New(ledger, smsProvider, emailSender, managers, logging.Default(), ack)
}

func TestSendSMSSkipsReservedSlot(t *testing.T) {
	ledger := &fakeLedger{decision: message.Skip}
	provider := &fakeSMS{}
	n := newNotifier(ledger, provider, &fakeEmail{}, &fakeManagers{}, false)

	sent, err := n.SendSMS(context.Background(), uuid.New(), message.TemplateAutoCancelNotice, "+40712345678", "text")
	if err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if sent {
		t.Fatal("skip decision must not send")
	}
	if provider.sends != 0 {
		t.Fatalf("provider called %d times on skip", provider.sends)
	}
}

func TestSendSMSFinalizesFailureAndReturnsError(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	provider := &fakeSMS{err: errors.New("gateway down")}
	n := newNotifier(ledger, provider, &fakeEmail{}, &fakeManagers{}, false)

	_, err := n.SendSMS(context.Background(), uuid.New(), message.TemplateConfirmRequest, "+40712345678", "text")
	if err == nil {
		t.Fatal("expected transport error to surface")
	}
	if len(ledger.finalizes) != 1 || ledger.finalizes[0].status != message.StatusFailed {
		t.Fatalf("expected one failed finalize, got %+v", ledger.finalizes)
	}
}

func TestConfirmedAckDisabledIsNoOp(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	provider := &fakeSMS{}
	n := newNotifier(ledger, provider, &fakeEmail{}, &fakeManagers{}, false)

	if err := n.SendConfirmedAckIfEnabled(context.Background(), time.UTC, testAppointment()); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if ledger.reserves != 0 || provider.sends != 0 {
		t.Fatal("disabled ack must not touch ledger or provider")
	}
}

func TestConfirmedAckEnabledSends(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	provider := &fakeSMS{}
	n := newNotifier(ledger, provider, &fakeEmail{}, &fakeManagers{}, true)

	if err := n.SendConfirmedAckIfEnabled(context.Background(), time.UTC, testAppointment()); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if provider.sends != 1 {
		t.Fatalf("expected one send, got %d", provider.sends)
	}
	if len(ledger.finalizes) != 1 || ledger.finalizes[0].status != "sent" {
		t.Fatalf("expected sent finalize, got %+v", ledger.finalizes)
	}
}

func TestClinicCancelNoticeSkipsWithoutManager(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	sender := &fakeEmail{}
	n := newNotifier(ledger, &fakeSMS{}, sender, &fakeManagers{manager: nil}, false)
	c := &clinic.Clinic{ID: uuid.New(), Name: "Clinica Zambet", Timezone: "Europe/Bucharest"}

	err := n.SendClinicCancelNotice(context.Background(), time.UTC, c, testAppointment(), email.CancelReasonPatient)
	if err != nil {
		t.Fatalf("notice: %v", err)
	}
	if ledger.reserves != 0 || len(sender.sent) != 0 {
		t.Fatal("missing manager must skip without reserving or sending")
	}
}

func TestClinicCancelNoticeSendsToManager(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	sender := &fakeEmail{}
	managers := &fakeManagers{manager: &clinic.Manager{Email: "manager@clinic.ro"}}
	n := newNotifier(ledger, &fakeSMS{}, sender, managers, false)
	c := &clinic.Clinic{ID: uuid.New(), Name: "Clinica Zambet", Timezone: "Europe/Bucharest"}

	err := n.SendClinicCancelNotice(context.Background(), time.UTC, c, testAppointment(), email.CancelReasonAuto)
	if err != nil {
		t.Fatalf("notice: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "manager@clinic.ro" {
		t.Fatalf("unexpected recipient: %s", sender.sent[0].To)
	}
	if !strings.Contains(sender.sent[0].Subject, "Clinica Zambet") {
		t.Fatalf("unexpected subject: %s", sender.sent[0].Subject)
	}
	if len(ledger.finalizes) != 1 || ledger.finalizes[0].status != message.StatusSent {
		t.Fatalf("expected sent finalize, got %+v", ledger.finalizes)
	}
}

func TestClinicCancelNoticeFinalizesEmailFailure(t *testing.T) {
	ledger := &fakeLedger{decision: message.Send}
	sender := &fakeEmail{err: errors.New("smtp refused")}
	managers := &fakeManagers{manager: &clinic.Manager{Email: "manager@clinic.ro"}}
	n := newNotifier(ledger, &fakeSMS{}, sender, managers, false)
	c := &clinic.Clinic{ID: uuid.New(), Name: "Clinica Zambet", Timezone: "Europe/Bucharest"}

	err := n.SendClinicCancelNotice(context.Background(), time.UTC, c, testAppointment(), email.CancelReasonAuto)
	if err == nil {
		t.Fatal("expected email failure to surface")
	}
	if len(ledger.finalizes) != 1 || ledger.finalizes[0].status != message.StatusFailed {
		t.Fatalf("expected failed finalize, got %+v", ledger.finalizes)
	}
}
