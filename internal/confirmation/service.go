// Package confirmation executes patient link actions. Responses are
// deliberately neutral: a guessed, expired or replayed link gets the
// same answer as a malformed one, so link probing reveals nothing about
// which appointments exist.
package confirmation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/email"
	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
	"github.com/atwonio16/noshowdentalclinic/internal/token"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Patient-facing texts. Romanian without diacritics, matching the SMS
// wording.
const (
	MsgInvalidLink      = "Link invalid sau expirat."
	MsgUnusableToken    = "Link invalid, expirat sau deja folosit."
	MsgClinicNotFound   = "Clinica nu a fost gasita."
	MsgConfirmed        = "Programarea a fost confirmata cu succes."
	MsgAlreadyConfirmed = "Programarea este deja confirmata."
	MsgCannotConfirm    = "Programarea nu mai poate fi confirmata."
	MsgCanceled         = "Programarea a fost anulata."
	MsgCannotCancel     = "Programarea nu mai poate fi anulata."
)

// Result is what the patient sees after following a link.
type Result struct {
	Success bool
	Message string
}

// TokenStore is the slice of the token repository the service needs.
type TokenStore interface {
	FindByValue(ctx context.Context, value string) (*token.Token, error)
	InvalidateAll(ctx context.Context, appointmentID uuid.UUID) error
}

// AppointmentStore is the slice of the appointment repository the
// service needs.
type AppointmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, newStatus appointment.Status, allowedCurrent []appointment.Status) (*appointment.Appointment, error)
}

// ClinicStore resolves the clinic an appointment belongs to.
type ClinicStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

// Notifier sends the follow-up notifications an action triggers.
type Notifier interface {
	SendConfirmedAckIfEnabled(ctx context.Context, loc *time.Location, a *appointment.Appointment) error
	SendClinicCancelNotice(ctx context.Context, loc *time.Location, c *clinic.Clinic, a *appointment.Appointment, reason email.CancelReason) error
}

// Service handles confirm and cancel link actions.
type Service struct {
	tokens       TokenStore
	appointments AppointmentStore
	clinics      ClinicStore
	notifier     Notifier
	logger       *logging.Logger
	now          func() time.Time
}

func NewService(tokens TokenStore, appointments AppointmentStore, clinics ClinicStore, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		tokens:       tokens,
		appointments: appointments,
		clinics:      clinics,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle resolves a link token and applies the action it encodes.
func (s *Service) Handle(ctx context.Context, tokenValue string, purpose token.Purpose) (*Result, error) {
	tok, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return &Result{Message: MsgInvalidLink}, nil
	}

	if outcome := token.Validate(tok, purpose, s.now()); outcome != token.OutcomeOK {
		return &Result{Message: MsgUnusableToken}, nil
	}

	a, err := s.appointments.GetByID(ctx, tok.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return &Result{Message: MsgInvalidLink}, nil
	}

	c, err := s.clinics.GetByID(ctx, a.ClinicID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &Result{Message: MsgClinicNotFound}, nil
	}
	loc, err := timewindow.LoadLocation(c.Timezone)
	if err != nil {
		return nil, err
	}

	if purpose == token.PurposeConfirm {
		return s.confirm(ctx, loc, c, a)
	}
	return s.cancel(ctx, loc, c, a)
}

func (s *Service) confirm(ctx context.Context, loc *time.Location, c *clinic.Clinic, a *appointment.Appointment) (*Result, error) {
	updated, err := s.appointments.SetStatus(ctx, a.ID, appointment.StatusConfirmed,
		[]appointment.Status{appointment.StatusPending})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost the race or the state moved on. Confirming twice is
		// still a success for the patient.
		current, err := s.appointments.GetByID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == appointment.StatusConfirmed {
			if err := s.tokens.InvalidateAll(ctx, a.ID); err != nil {
				return nil, err
			}
			return &Result{Success: true, Message: MsgAlreadyConfirmed}, nil
		}
		return &Result{Message: MsgCannotConfirm}, nil
	}

	if err := s.tokens.InvalidateAll(ctx, a.ID); err != nil {
		return nil, err
	}
	if err := s.notifier.SendConfirmedAckIfEnabled(ctx, loc, updated); err != nil {
		s.logger.Error("confirmed ack failed", "error", err, "appointment_id", a.ID)
	}
	return &Result{Success: true, Message: MsgConfirmed}, nil
}

func (s *Service) cancel(ctx context.Context, loc *time.Location, c *clinic.Clinic, a *appointment.Appointment) (*Result, error) {
	canceled, err := s.appointments.SetStatus(ctx, a.ID, appointment.StatusCanceledByPatient,
		[]appointment.Status{appointment.StatusPending, appointment.StatusConfirmed})
	if err != nil {
		return nil, err
	}
	if canceled == nil {
		return &Result{Message: MsgCannotCancel}, nil
	}

	if err := s.tokens.InvalidateAll(ctx, a.ID); err != nil {
		return nil, err
	}
	if err := s.notifier.SendClinicCancelNotice(ctx, loc, c, canceled, email.CancelReasonPatient); err != nil {
		s.logger.Error("clinic cancel notice failed", "error", err, "appointment_id", a.ID)
	}
	return &Result{Success: true, Message: MsgCanceled}, nil
}
