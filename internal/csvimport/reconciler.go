// Package csvimport reconciles a clinic's CSV snapshot against stored
// appointments. The snapshot is authoritative for the import horizon:
// rows are upserted on the natural key, and pending appointments the
// snapshot no longer lists are treated as canceled by the patient.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
	"github.com/atwonio16/noshowdentalclinic/internal/phone"
	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
)

var requiredColumns = []string{"appointment_id", "start_datetime", "phone", "appointment_type"}

// AppointmentStore is the slice of the appointment repository the
// reconciler needs.
type AppointmentStore interface {
	ListInRange(ctx context.Context, clinicID uuid.UUID, lo, hi time.Time) ([]appointment.Appointment, error)
	UpsertBatch(ctx context.Context, rows []appointment.UpsertRow) error
	MarkCanceledByPatient(ctx context.Context, ids []uuid.UUID) error
}

// Summary reports what one import did.
type Summary struct {
	ClinicID        uuid.UUID `json:"clinic_id"`
	TotalRows       int       `json:"total_rows"`
	UpsertedRows    int       `json:"upserted_rows"`
	CanceledMissing int       `json:"canceled_missing_count"`
}

// Reconciler imports CSV snapshots.
type Reconciler struct {
	store AppointmentStore
	now   func() time.Time
}

func NewReconciler(store AppointmentStore) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// Import parses one snapshot and reconciles it. Any malformed row
// fails the whole import; a partial import would make absent rows
// indistinguishable from patient cancellations.
func (r *Reconciler) Import(ctx context.Context, c *clinic.Clinic, src io.Reader) (*Summary, error) {
	loc, err := timewindow.LoadLocation(c.Timezone)
	if err != nil {
		return nil, err
	}

	records, headers, err := parseRecords(src)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(headers); len(missing) > 0 {
		return nil, fmt.Errorf("csvimport: missing required columns: %s", strings.Join(missing, ", "))
	}

	// The snapshot covers tomorrow and the following day in clinic
	// time; today is already past the confirmation deadline.
	horizonStart := timewindow.TomorrowLocal(r.now(), loc)
	lo, _ := timewindow.DayRangeUTC(horizonStart)
	hi := horizonStart.AddDate(0, 0, 2).UTC()

	existing, err := r.store.ListInRange(ctx, c.ID, lo, hi)
	if err != nil {
		return nil, err
	}
	existingByKey := make(map[string]appointment.Appointment, len(existing))
	for _, a := range existing {
		existingByKey[rowKey(a.ExternalID, a.StartAt)] = a
	}

	importedKeys := make(map[string]bool, len(records))
	upserts := make([]appointment.UpsertRow, 0, len(records))
	for i, record := range records {
		row, err := buildUpsertRow(c.ID, record, loc)
		if err != nil {
			return nil, fmt.Errorf("csvimport: row %d: %w", i+1, err)
		}

		key := rowKey(row.ExternalID, row.StartAt)
		feedStatus := MapFeedStatus(record["status"])
		var existingStatus appointment.Status
		if prior, ok := existingByKey[key]; ok {
			existingStatus = prior.Status
		}
		row.Status = ResolveStatus(existingStatus, feedStatus)

		importedKeys[key] = true
		upserts = append(upserts, *row)
	}

	if err := r.store.UpsertBatch(ctx, upserts); err != nil {
		return nil, err
	}

	var missingPending []uuid.UUID
	for _, a := range existing {
		if a.Status == appointment.StatusPending && !importedKeys[rowKey(a.ExternalID, a.StartAt)] {
			missingPending = append(missingPending, a.ID)
		}
	}
	if err := r.store.MarkCanceledByPatient(ctx, missingPending); err != nil {
		return nil, err
	}

	return &Summary{
		ClinicID:        c.ID,
		TotalRows:       len(records),
		UpsertedRows:    len(upserts),
		CanceledMissing: len(missingPending),
	}, nil
}

func buildUpsertRow(clinicID uuid.UUID, record map[string]string, loc *time.Location) (*appointment.UpsertRow, error) {
	externalID := record["appointment_id"]
	startRaw := record["start_datetime"]
	phoneRaw := record["phone"]
	appointmentType := record["appointment_type"]
	if externalID == "" || startRaw == "" || phoneRaw == "" || appointmentType == "" {
		return nil, fmt.Errorf("missing required values (appointment_id, start_datetime, phone, appointment_type)")
	}

	startAt, err := timewindow.ParseDateTime(startRaw, loc)
	if err != nil {
		return nil, err
	}
	normalizedPhone, err := phone.NormalizeRO(phoneRaw)
	if err != nil {
		return nil, err
	}

	return &appointment.UpsertRow{
		ClinicID:        clinicID,
		ExternalID:      externalID,
		StartAt:         startAt,
		Phone:           normalizedPhone,
		AppointmentType: appointmentType,
		PatientName:     optional(record["patient_name"]),
		ProviderName:    optional(record["provider_name"]),
		Source:          appointment.SourceCSVUpload,
	}, nil
}

// parseRecords reads the whole snapshot into trimmed header-keyed maps.
func parseRecords(src io.Reader) ([]map[string]string, []string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("csvimport: parse csv: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("csvimport: empty csv")
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	var records []map[string]string
	for _, line := range raw[1:] {
		if isBlank(line) {
			continue
		}
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(line) {
				record[header] = strings.TrimSpace(line[i])
			}
		}
		records = append(records, record)
	}
	return records, headers, nil
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, required := range requiredColumns {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func rowKey(externalID string, startAt time.Time) string {
	return externalID + "__" + startAt.UTC().Format(time.RFC3339)
}

func isBlank(line []string) bool {
	for _, cell := range line {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
