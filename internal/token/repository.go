package token

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

// Repository persists tokens in Postgres.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("token: pgx pool required")
	}
	return &Repository{pool: pool}
}

const tokenColumns = `id, appointment_id, token, purpose, expires_at, used_at, created_at`

func scanToken(row pgx.Row) (*Token, error) {
	var (
		t       Token
		purpose string
	)
	err := row.Scan(&t.ID, &t.AppointmentID, &t.Value, &purpose, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Purpose = Purpose(purpose)
	return &t, nil
}

// GetValid returns the unused, unexpired token for
// (appointment, purpose), or (nil, nil) when there is none.
func (r *Repository) GetValid(ctx context.Context, appointmentID uuid.UUID, purpose Purpose, now time.Time) (*Token, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE appointment_id = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3`,
		appointmentID, purpose, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token: get valid: %w", err)
	}
	return t, nil
}

// IssueOrRotate writes a fresh random value into the
// (appointment, purpose) slot, clearing used_at. Rotation upserts the
// same logical slot, so repeated calls within a job run never orphan
// old tokens.
func (r *Repository) IssueOrRotate(ctx context.Context, appointmentID uuid.UUID, purpose Purpose, expiresAt time.Time) (*Token, error) {
	value, err := newValue()
	if err != nil {
		return nil, err
	}
	t, err := scanToken(r.pool.QueryRow(ctx, `
		INSERT INTO tokens (appointment_id, token, purpose, expires_at, used_at)
		VALUES ($1, $2, $3, $4, NULL)
		ON CONFLICT (appointment_id, purpose)
		DO UPDATE SET token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at,
			used_at = NULL
		RETURNING `+tokenColumns,
		appointmentID, value, purpose, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("token: issue or rotate: %w", err)
	}
	return t, nil
}

// FindByValue looks a token up by its opaque value, or (nil, nil) when
// absent. Callers must not reveal which of the two happened.
func (r *Repository) FindByValue(ctx context.Context, value string) (*Token, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE token = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token: find by value: %w", err)
	}
	return t, nil
}

// InvalidateAll marks every unused token of an appointment as used,
// across both purposes. Called once any action irrevocably changes the
// appointment, so a stale confirm link cannot resurrect a canceled
// appointment and vice versa.
func (r *Repository) InvalidateAll(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tokens
		SET used_at = now()
		WHERE appointment_id = $1 AND used_at IS NULL`, appointmentID)
	if err != nil {
		return fmt.Errorf("token: invalidate all: %w", err)
	}
	return nil
}
