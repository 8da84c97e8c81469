// Package jobs holds the scheduled confirmation flow: the evening
// confirm-request pass and the morning auto-cancel pass, plus the
// minute-tick orchestrator that triggers them per clinic.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/message"
	"github.com/atwonio16/noshowdentalclinic/internal/observability/metrics"
	"github.com/atwonio16/noshowdentalclinic/internal/sms"
	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
	"github.com/atwonio16/noshowdentalclinic/internal/token"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// AppointmentStore is the slice of the appointment repository the jobs
// need.
type AppointmentStore interface {
	ListByStatusInRange(ctx context.Context, clinicID uuid.UUID, statuses []appointment.Status, lo, hi time.Time) ([]appointment.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, newStatus appointment.Status, allowedCurrent []appointment.Status) (*appointment.Appointment, error)
}

// TokenIssuer is the slice of the token repository the jobs need.
type TokenIssuer interface {
	GetValid(ctx context.Context, appointmentID uuid.UUID, purpose token.Purpose, now time.Time) (*token.Token, error)
	IssueOrRotate(ctx context.Context, appointmentID uuid.UUID, purpose token.Purpose, expiresAt time.Time) (*token.Token, error)
}

// Notifier is the slice of the ledgered notifier the jobs need.
type Notifier interface {
	Reserve(ctx context.Context, appointmentID uuid.UUID, template message.Template, to string) (message.Decision, error)
	Deliver(ctx context.Context, appointmentID uuid.UUID, template message.Template, to, body string) error
	SendSMS(ctx context.Context, appointmentID uuid.UUID, template message.Template, to, body string) (bool, error)
	SendClinicCancelNotice(ctx context.Context, loc *time.Location, c *clinic.Clinic, a *appointment.Appointment, reason email.CancelReason) error
}

// Runner executes the two per-clinic jobs.
type Runner struct {
	appointments  AppointmentStore
	tokens        TokenIssuer
	notifier      Notifier
	publicBaseURL string
	logger        *logging.Logger
	metrics       *metrics.ConfirmationMetrics
}

func NewRunner(appointments AppointmentStore, tokens TokenIssuer, notifier Notifier, publicBaseURL string, logger *logging.Logger, m *metrics.ConfirmationMetrics) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		appointments:  appointments,
		tokens:        tokens,
		notifier:      notifier,
		publicBaseURL: publicBaseURL,
		logger:        logger,
		metrics:       m,
	}
}

// window is the day-after-tomorrow slice of a clinic's calendar, plus
// today's confirmation deadline.
type window struct {
	lo       time.Time
	hi       time.Time
	deadline time.Time
	loc      *time.Location
}

func clinicWindow(c *clinic.Clinic, now time.Time) (*window, error) {
	loc, err := timewindow.LoadLocation(c.Timezone)
	if err != nil {
		return nil, err
	}
	target := timewindow.DayAfterTomorrowLocal(now, loc)
	lo, hi := timewindow.DayRangeUTC(target)
	return &window{
		lo:       lo,
		hi:       hi,
		deadline: timewindow.DeadlineUTC(now, loc, c.DeadlineHour),
		loc:      loc,
	}, nil
}

// RunConfirmRequest texts every still-pending appointment in the window
// a confirm and a cancel link, each expiring at today's deadline. Runs
// started after the deadline do nothing: the links would be born dead
// and the auto-cancel pass already owns the day.
func (r *Runner) RunConfirmRequest(ctx context.Context, c *clinic.Clinic, now time.Time) error {
	w, err := clinicWindow(c, now)
	if err != nil {
		return err
	}
	if !now.Before(w.deadline) {
		r.logger.Info("confirm request job skipped, deadline already passed", "clinic_id", c.ID)
		return nil
	}

	pending, err := r.appointments.ListByStatusInRange(ctx, c.ID,
		[]appointment.Status{appointment.StatusPending}, w.lo, w.hi)
	if err != nil {
		return err
	}

	for _, a := range pending {
		if err := r.sendConfirmRequest(ctx, c, w, &a, now); err != nil {
			// One failed patient must not silence the rest.
			r.logger.Error("confirm request failed", "error", err,
				"clinic_id", c.ID, "appointment_id", a.ID)
			r.metrics.ObserveNotification("sms", string(message.TemplateConfirmRequest), "failed")
			continue
		}
	}
	return nil
}

func (r *Runner) sendConfirmRequest(ctx context.Context, c *clinic.Clinic, w *window, a *appointment.Appointment, now time.Time) error {
	// Reserve before issuing tokens: a Skip means the links from the
	// earlier send are still live and must not be rotated away.
	decision, err := r.notifier.Reserve(ctx, a.ID, message.TemplateConfirmRequest, a.Phone)
	if err != nil {
		return err
	}
	if decision == message.Skip {
		return nil
	}

	confirmTok, err := r.getOrCreateToken(ctx, a.ID, token.PurposeConfirm, w.deadline, now)
	if err != nil {
		return err
	}
	cancelTok, err := r.getOrCreateToken(ctx, a.ID, token.PurposeCancel, w.deadline, now)
	if err != nil {
		return err
	}

	body := sms.ConfirmRequest(a.StartAt, w.loc, c.DeadlineHour,
		r.publicBaseURL+"/c/"+confirmTok.Value,
		r.publicBaseURL+"/x/"+cancelTok.Value)
	if err := r.notifier.Deliver(ctx, a.ID, message.TemplateConfirmRequest, a.Phone, body); err != nil {
		return err
	}
	r.metrics.ObserveNotification("sms", string(message.TemplateConfirmRequest), "sent")
	return nil
}

// getOrCreateToken reuses a live token so a rerun within the same day
// sends the same links, and only mints a fresh value when none is
// usable.
func (r *Runner) getOrCreateToken(ctx context.Context, appointmentID uuid.UUID, purpose token.Purpose, expiresAt, now time.Time) (*token.Token, error) {
	existing, err := r.tokens.GetValid(ctx, appointmentID, purpose, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return r.tokens.IssueOrRotate(ctx, appointmentID, purpose, expiresAt)
}

// RunAutoCancel flips every still-pending appointment in the window to
// canceled_auto, then notifies patients and staff for every auto
// cancellation in the window, including ones from earlier runs whose
// notices have not gone out yet.
func (r *Runner) RunAutoCancel(ctx context.Context, c *clinic.Clinic, now time.Time) error {
	w, err := clinicWindow(c, now)
	if err != nil {
		return err
	}

	pending, err := r.appointments.ListByStatusInRange(ctx, c.ID,
		[]appointment.Status{appointment.StatusPending}, w.lo, w.hi)
	if err != nil {
		return err
	}

	var canceled int
	for _, a := range pending {
		updated, err := r.appointments.SetStatus(ctx, a.ID, appointment.StatusCanceledAuto,
			[]appointment.Status{appointment.StatusPending})
		if err != nil {
			r.logger.Error("auto cancel transition failed", "error", err,
				"clinic_id", c.ID, "appointment_id", a.ID)
			continue
		}
		if updated != nil {
			canceled++
		}
	}
	if canceled > 0 {
		r.logger.Info("auto-canceled pending appointments", "clinic_id", c.ID, "count", canceled)
	}

	autoCanceled, err := r.appointments.ListByStatusInRange(ctx, c.ID,
		[]appointment.Status{appointment.StatusCanceledAuto}, w.lo, w.hi)
	if err != nil {
		return err
	}

	for _, a := range autoCanceled {
		body := sms.AutoCancelNotice(a.StartAt, w.loc)
		sent, err := r.notifier.SendSMS(ctx, a.ID, message.TemplateAutoCancelNotice, a.Phone, body)
		if err != nil {
			r.logger.Error("auto cancel sms failed", "error", err,
				"clinic_id", c.ID, "appointment_id", a.ID)
			r.metrics.ObserveNotification("sms", string(message.TemplateAutoCancelNotice), "failed")
		} else if sent {
			r.metrics.ObserveNotification("sms", string(message.TemplateAutoCancelNotice), "sent")
		}

		// The staff notice goes out even when the patient SMS failed.
		if err := r.notifier.SendClinicCancelNotice(ctx, w.loc, c, &a, email.CancelReasonAuto); err != nil {
			r.logger.Error("clinic cancel notice failed", "error", err,
				"clinic_id", c.ID, "appointment_id", a.ID)
		}
	}
	return nil
}
