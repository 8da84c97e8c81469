package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// AppointmentStore is the read side the dashboard needs.
type AppointmentStore interface {
	CountByStatus(ctx context.Context, clinicID uuid.UUID, lo, hi time.Time) (appointment.StatusCounts, error)
	ListInRange(ctx context.Context, clinicID uuid.UUID, lo, hi time.Time) ([]appointment.Appointment, error)
}

// ClinicSettingsStore extends clinic lookup with the manager-editable
// settings update.
type ClinicSettingsStore interface {
	ClinicStore
	UpdateSettings(ctx context.Context, id uuid.UUID, name, timezone string, exportHour, deadlineHour int) (*clinic.Clinic, error)
}

// DashboardHandler serves the staff JSON API: day summaries, the
// appointment list and clinic settings.
type DashboardHandler struct {
	appointments AppointmentStore
	clinics      ClinicSettingsStore
	logger       *logging.Logger
	now          func() time.Time
}

func NewDashboardHandler(appointments AppointmentStore, clinics ClinicSettingsStore, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{appointments: appointments, clinics: clinics, logger: logger, now: time.Now}
}

type appointmentView struct {
	ID              uuid.UUID `json:"id"`
	ExternalID      string    `json:"external_appointment_id"`
	StartAt         time.Time `json:"start_datetime"`
	StartLocal      string    `json:"start_local"`
	Phone           string    `json:"phone"`
	AppointmentType string    `json:"appointment_type"`
	PatientName     *string   `json:"patient_name,omitempty"`
	ProviderName    *string   `json:"provider_name,omitempty"`
	Status          string    `json:"status"`
}

// Summary handles GET /admin/clinics/{clinicID}/dashboard. The optional
// "day" query parameter (yyyy-mm-dd, clinic-local) defaults to tomorrow.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	c, loc, ok := h.resolveClinic(w, r)
	if !ok {
		return
	}
	day, ok := h.resolveDay(w, r, loc)
	if !ok {
		return
	}

	lo, hi := timewindow.DayRangeUTC(day)
	counts, err := h.appointments.CountByStatus(r.Context(), c.ID, lo, hi)
	if err != nil {
		h.logger.Error("failed to count appointments", "error", err, "clinic_id", c.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"day":    timewindow.LocalDayKey(day, loc),
		"counts": counts,
	})
}

// Appointments handles GET /admin/clinics/{clinicID}/appointments with
// the same "day" parameter as Summary.
func (h *DashboardHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	c, loc, ok := h.resolveClinic(w, r)
	if !ok {
		return
	}
	day, ok := h.resolveDay(w, r, loc)
	if !ok {
		return
	}

	lo, hi := timewindow.DayRangeUTC(day)
	list, err := h.appointments.ListInRange(r.Context(), c.ID, lo, hi)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "clinic_id", c.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	views := make([]appointmentView, 0, len(list))
	for _, a := range list {
		views = append(views, appointmentView{
			ID:              a.ID,
			ExternalID:      a.ExternalID,
			StartAt:         a.StartAt,
			StartLocal:      timewindow.FormatDate(a.StartAt, loc) + " " + timewindow.FormatClock(a.StartAt, loc),
			Phone:           a.Phone,
			AppointmentType: a.AppointmentType,
			PatientName:     a.PatientName,
			ProviderName:    a.ProviderName,
			Status:          string(a.Status),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"day":          timewindow.LocalDayKey(day, loc),
		"appointments": views,
	})
}

type settingsRequest struct {
	Name         string `json:"name"`
	Timezone     string `json:"timezone"`
	ExportHour   *int   `json:"export_hour"`
	DeadlineHour *int   `json:"deadline_hour"`
}

// UpdateSettings handles PUT /admin/clinics/{clinicID}/settings.
func (h *DashboardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, `{"error": "invalid clinic id"}`, http.StatusBadRequest)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error": "name is required"}`, http.StatusBadRequest)
		return
	}
	if _, err := timewindow.LoadLocation(req.Timezone); err != nil {
		http.Error(w, `{"error": "unknown timezone"}`, http.StatusBadRequest)
		return
	}
	exportHour, ok := validHour(req.ExportHour)
	if !ok {
		http.Error(w, `{"error": "export_hour must be between 0 and 23"}`, http.StatusBadRequest)
		return
	}
	deadlineHour, ok := validHour(req.DeadlineHour)
	if !ok {
		http.Error(w, `{"error": "deadline_hour must be between 0 and 23"}`, http.StatusBadRequest)
		return
	}
	// The confirm job never fires if the deadline already passed when
	// requests go out.
	if exportHour >= deadlineHour {
		http.Error(w, `{"error": "export_hour must be earlier than deadline_hour"}`, http.StatusBadRequest)
		return
	}

	updated, err := h.clinics.UpdateSettings(r.Context(), clinicID, req.Name, req.Timezone, exportHour, deadlineHour)
	if err != nil {
		h.logger.Error("failed to update clinic settings", "error", err, "clinic_id", clinicID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, `{"error": "clinic not found"}`, http.StatusNotFound)
		return
	}

	h.logger.Info("clinic settings updated", "clinic_id", clinicID,
		"export_hour", exportHour, "deadline_hour", deadlineHour)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"clinic": map[string]any{
			"id":            updated.ID,
			"name":          updated.Name,
			"timezone":      updated.Timezone,
			"export_hour":   updated.ExportHour,
			"deadline_hour": updated.DeadlineHour,
		},
	})
}

func validHour(h *int) (int, bool) {
	if h == nil || *h < 0 || *h > 23 {
		return 0, false
	}
	return *h, true
}

func (h *DashboardHandler) resolveClinic(w http.ResponseWriter, r *http.Request) (*clinic.Clinic, *time.Location, bool) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, `{"error": "invalid clinic id"}`, http.StatusBadRequest)
		return nil, nil, false
	}
	c, err := h.clinics.GetByID(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("failed to load clinic", "error", err, "clinic_id", clinicID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, nil, false
	}
	if c == nil {
		http.Error(w, `{"error": "clinic not found"}`, http.StatusNotFound)
		return nil, nil, false
	}
	loc, err := timewindow.LoadLocation(c.Timezone)
	if err != nil {
		h.logger.Error("clinic has invalid timezone", "error", err, "clinic_id", clinicID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, nil, false
	}
	return c, loc, true
}

// resolveDay picks the local day the staff endpoints operate on.
// Without a "day" parameter it is tomorrow, the day the confirmation
// flow targets.
func (h *DashboardHandler) resolveDay(w http.ResponseWriter, r *http.Request, loc *time.Location) (time.Time, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return timewindow.TomorrowLocal(h.now(), loc), true
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		http.Error(w, `{"error": "day must be yyyy-mm-dd"}`, http.StatusBadRequest)
		return time.Time{}, false
	}
	return day, true
}
