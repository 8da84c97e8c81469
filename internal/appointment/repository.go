package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments in Postgres. Status changes go
// through SetStatus, a compare-and-set: concurrent token actions, the
// scheduler and re-imports all race on the same rows, and a blind
// overwrite could resurrect a canceled appointment.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &Repository{pool: pool}
}

const columns = `id, clinic_id, external_appointment_id, start_datetime, phone,
	appointment_type, patient_name, provider_name, source, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a              Appointment
		source, status string
	)
	err := row.Scan(&a.ID, &a.ClinicID, &a.ExternalID, &a.StartAt, &a.Phone,
		&a.AppointmentType, &a.PatientName, &a.ProviderName, &source, &status,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Source = Source(source)
	a.Status = Status(status)
	return &a, nil
}

func (r *Repository) collect(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointment: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListInRange returns a clinic's appointments with start in [lo, hi).
func (r *Repository) ListInRange(ctx context.Context, clinicID uuid.UUID, lo, hi time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE clinic_id = $1 AND start_datetime >= $2 AND start_datetime < $3
		ORDER BY start_datetime`, clinicID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("appointment: list in range: %w", err)
	}
	return r.collect(rows)
}

// ListByStatusInRange restricts ListInRange to a status set.
func (r *Repository) ListByStatusInRange(ctx context.Context, clinicID uuid.UUID, statuses []Status, lo, hi time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE clinic_id = $1 AND status = ANY($2) AND start_datetime >= $3 AND start_datetime < $4
		ORDER BY start_datetime`, clinicID, statusStrings(statuses), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("appointment: list by status: %w", err)
	}
	return r.collect(rows)
}

// GetByID returns an appointment, or (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: get by id: %w", err)
	}
	return a, nil
}

// SetStatus transitions an appointment to newStatus only if its current
// status is in allowedCurrent. It returns the updated row, or
// (nil, nil) when the row is missing or the precondition failed;
// callers treat that as expected control flow, not an error.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, newStatus Status, allowedCurrent []Status) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+columns, id, newStatus, statusStrings(allowedCurrent)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: set status: %w", err)
	}
	return a, nil
}

// UpsertBatch writes reconciled feed rows, keyed on the natural key.
// Re-importing an existing row updates it in place.
func (r *Repository) UpsertBatch(ctx context.Context, rows []UpsertRow) error {
	for _, row := range rows {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO appointments (
				clinic_id, external_appointment_id, start_datetime, phone,
				appointment_type, patient_name, provider_name, source, status
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (clinic_id, external_appointment_id, start_datetime)
			DO UPDATE SET phone = EXCLUDED.phone,
				appointment_type = EXCLUDED.appointment_type,
				patient_name = EXCLUDED.patient_name,
				provider_name = EXCLUDED.provider_name,
				source = EXCLUDED.source,
				status = EXCLUDED.status,
				updated_at = now()`,
			row.ClinicID, row.ExternalID, row.StartAt, row.Phone,
			row.AppointmentType, row.PatientName, row.ProviderName, row.Source, row.Status)
		if err != nil {
			return fmt.Errorf("appointment: upsert %s: %w", row.ExternalID, err)
		}
	}
	return nil
}

// MarkCanceledByPatient cancels the given appointments if they are
// still pending. Used when a re-imported snapshot no longer lists them.
func (r *Repository) MarkCanceledByPatient(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = ANY($1) AND status = $3`,
		ids, StatusCanceledByPatient, StatusPending)
	if err != nil {
		return fmt.Errorf("appointment: mark canceled by patient: %w", err)
	}
	return nil
}

// CountByStatus summarizes a clinic's window for the dashboard.
func (r *Repository) CountByStatus(ctx context.Context, clinicID uuid.UUID, lo, hi time.Time) (StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE clinic_id = $1 AND start_datetime >= $2 AND start_datetime < $3
		GROUP BY status`, clinicID, lo, hi)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("appointment: count by status: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("appointment: scan count: %w", err)
		}
		counts.Total += n
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusConfirmed:
			counts.Confirmed = n
		case StatusCanceledByPatient:
			counts.CanceledByPatient = n
		case StatusCanceledAuto:
			counts.CanceledAuto = n
		}
	}
	return counts, rows.Err()
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
