package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is a tenant of the confirmation service. ExportHour is the
// local hour confirmation requests go out; DeadlineHour is the local
// hour unconfirmed appointments auto-cancel the same day.
type Clinic struct {
	ID           uuid.UUID
	Name         string
	Timezone     string
	ExportHour   int
	DeadlineHour int
	CreatedAt    time.Time
}

// Manager is the clinic staff account that receives cancellation
// notices and owns the dashboard.
type Manager struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	Email    string
}
