package clinic

import (
	"context"
	"errors"
	"fmt"

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

// Repository persists clinics and their manager accounts in Postgres.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("clinic: pgx pool required")
	}
	return &Repository{pool: pool}
}

const clinicColumns = `id, name, timezone, export_hour, deadline_hour, created_at`

// List returns every clinic; the scheduler walks this on each tick.
func (r *Repository) List(ctx context.Context) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("clinic: list: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Timezone, &c.ExportHour, &c.DeadlineHour, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("clinic: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID returns a clinic, or (nil, nil) when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	var c Clinic
	err := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Timezone, &c.ExportHour, &c.DeadlineHour, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get by id: %w", err)
	}
	return &c, nil
}

// UpdateSettings applies manager-editable clinic settings and returns
// the updated row.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, name, timezone string, exportHour, deadlineHour int) (*Clinic, error) {
	var c Clinic
	err := r.pool.QueryRow(ctx, `
		UPDATE clinics
		SET name = $2, timezone = $3, export_hour = $4, deadline_hour = $5
		WHERE id = $1
		RETURNING `+clinicColumns,
		id, name, timezone, exportHour, deadlineHour).
		Scan(&c.ID, &c.Name, &c.Timezone, &c.ExportHour, &c.DeadlineHour, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: update settings: %w", err)
	}
	return &c, nil
}

// ManagerContact returns the manager account for a clinic, or
// (nil, nil) when the clinic has none.
func (r *Repository) ManagerContact(ctx context.Context, clinicID uuid.UUID) (*Manager, error) {
	var m Manager
	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, email
		FROM users
		WHERE clinic_id = $1 AND role = 'manager'
		LIMIT 1`, clinicID).
		Scan(&m.ID, &m.ClinicID, &m.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: manager contact: %w", err)
	}
	return &m, nil
}
