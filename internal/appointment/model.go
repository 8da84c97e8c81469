package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending           Status = "pending"
	StatusConfirmed         Status = "confirmed"
	StatusCanceledByPatient Status = "canceled_by_patient"
	StatusCanceledAuto      Status = "canceled_auto"
)

// Terminal reports whether no transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCanceledByPatient || s == StatusCanceledAuto
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceledByPatient, StatusCanceledAuto:
		return true
	}
	return false
}

// Source records which ingestion path created an appointment.
type Source string

const (
	SourceCSVUpload Source = "csv_upload"
	SourceEmail     Source = "email"
)

// Appointment is one patient visit slot imported from the clinic's
// scheduling feed. (ClinicID, ExternalID, StartAt) is the natural key:
// re-importing the same external id at the same start instant updates
// the same row.
type Appointment struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	ExternalID      string
	StartAt         time.Time // UTC
	Phone           string
	AppointmentType string
	PatientName     *string
	ProviderName    *string
	Source          Source
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpsertRow is the reconciler's write unit, keyed on
// (clinic_id, external_appointment_id, start_datetime).
type UpsertRow struct {
	ClinicID        uuid.UUID
	ExternalID      string
	StartAt         time.Time // UTC
	Phone           string
	AppointmentType string
	PatientName     *string
	ProviderName    *string
	Source          Source
	Status          Status
}

// StatusCounts summarizes a day window for the dashboard.
type StatusCounts struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Confirmed         int `json:"confirmed"`
	CanceledByPatient int `json:"canceled_by_patient"`
	CanceledAuto      int `json:"canceled_auto"`
}
