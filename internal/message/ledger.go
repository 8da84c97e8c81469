// Package message records every notification attempt. A ledger row is
// reserved in "queued" state before the transport call and finalized
// afterward regardless of outcome; (appointment, channel, template) is
// unique, which is what makes dispatch at-most-once per attempt.
package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Channel is the transport a notification goes out on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Template enumerates the notification kinds.
type Template string

const (
	TemplateConfirmRequest     Template = "confirm_request"
	TemplateConfirmedAck       Template = "confirmed_ack"
	TemplateAutoCancelNotice   Template = "auto_cancel_notice"
	TemplateClinicCancelNotice Template = "clinic_cancel_notice"
)

// Delivery statuses this package writes itself. Anything else in the
// column is whatever string the transport reported.
const (
	StatusQueued = "queued"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Decision is the outcome of a reservation attempt.
type Decision int

const (
	Skip Decision = iota
	Send
)

// Message is one ledger entry.
type Message struct {
	ID                uuid.UUID
	AppointmentID     uuid.UUID
	Channel           Channel
	Template          Template
	Recipient         string
	SentAt            time.Time
	ProviderMessageID *string
	DeliveryStatus    *string
	Raw               []byte
}

// PgxPool is the subset of pgxpool.Pool the ledger needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger persists notification attempts in Postgres.
type Ledger struct {
	pool PgxPool
}

func NewLedger(pool PgxPool) *Ledger {
	if pool == nil {
		panic("message: pgx pool required")
	}
	return &Ledger{pool: pool}
}

const messageColumns = `id, appointment_id, channel, template, recipient, sent_at,
	provider_message_id, delivery_status, raw`

func scanMessage(row pgx.Row) (*Message, error) {
	var (
		m                 Message
		channel, template string
	)
	err := row.Scan(&m.ID, &m.AppointmentID, &channel, &template, &m.Recipient,
		&m.SentAt, &m.ProviderMessageID, &m.DeliveryStatus, &m.Raw)
	if err != nil {
		return nil, err
	}
	m.Channel = Channel(channel)
	m.Template = Template(template)
	return &m, nil
}

// Get returns the ledger row for the dedup key, or (nil, nil).
func (l *Ledger) Get(ctx context.Context, appointmentID uuid.UUID, channel Channel, template Template) (*Message, error) {
	m, err := scanMessage(l.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE appointment_id = $1 AND channel = $2 AND template = $3`,
		appointmentID, channel, template))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message: get: %w", err)
	}
	return m, nil
}

// Reserve claims the (appointment, channel, template) slot. Send means
// the caller should attempt the transport; Skip means a send was
// already recorded. A previously failed or still-queued attempt yields
// Send again, so the next job invocation retries it. When the insert
// races with another reservation the unique key fires; the conflict is
// the signal that someone else holds the slot, so we re-read and apply
// the same rule instead of locking.
func (l *Ledger) Reserve(ctx context.Context, appointmentID uuid.UUID, channel Channel, template Template, to string) (Decision, error) {
	existing, err := l.Get(ctx, appointmentID, channel, template)
	if err != nil {
		return Skip, err
	}
	if existing != nil {
		return decide(existing), nil
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO messages (appointment_id, channel, template, recipient, sent_at, delivery_status)
		VALUES ($1, $2, $3, $4, now(), $5)`,
		appointmentID, channel, template, to, StatusQueued)
	if err == nil {
		return Send, nil
	}
	if !isUniqueViolation(err) {
		return Skip, fmt.Errorf("message: reserve: %w", err)
	}

	current, err := l.Get(ctx, appointmentID, channel, template)
	if err != nil {
		return Skip, err
	}
	if current == nil {
		return Skip, nil
	}
	return decide(current), nil
}

func decide(m *Message) Decision {
	if m.DeliveryStatus != nil && *m.DeliveryStatus == StatusSent {
		return Skip
	}
	return Send
}

// Finalize records the transport outcome on the reserved row. It must
// run even when the transport call failed: a failed attempt consumes
// the reservation instead of leaving it queued and silently retried
// every tick.
func (l *Ledger) Finalize(ctx context.Context, appointmentID uuid.UUID, channel Channel, template Template, providerMessageID, deliveryStatus string, raw []byte) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE messages
		SET provider_message_id = NULLIF($4, ''),
			delivery_status = $5,
			raw = $6,
			sent_at = now()
		WHERE appointment_id = $1 AND channel = $2 AND template = $3`,
		appointmentID, channel, template, providerMessageID, deliveryStatus, raw)
	if err != nil {
		return fmt.Errorf("message: finalize: %w", err)
	}
	return nil
}

// ListForAppointment returns an appointment's ledger entries, newest
// first.
func (l *Ledger) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE appointment_id = $1
		ORDER BY sent_at DESC`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("message: list for appointment: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("message: scan: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
