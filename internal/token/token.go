// Package token issues and validates the single-use action tokens
// embedded in patient confirm/cancel links. A token is bound to one
// appointment and one purpose at issuance; at most one unused,
// unexpired token exists per (appointment, purpose).
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Purpose is the action a token authorizes.
type Purpose string

const (
	PurposeConfirm Purpose = "confirm"
	PurposeCancel  Purpose = "cancel"
)

// Token is a single-use action credential.
type Token struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Value         string
	Purpose       Purpose
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}

// Outcome is the result of validating a token against an expected
// purpose.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeInvalidPurpose Outcome = "invalid_purpose"
	OutcomeUsed           Outcome = "used"
	OutcomeExpired        Outcome = "expired"
)

// Validate checks a token against the purpose the caller expects.
// Precedence is fixed: purpose mismatch first, then used, then expiry.
// A used token presented to the wrong endpoint reports InvalidPurpose,
// not Used.
func Validate(t *Token, expected Purpose, now time.Time) Outcome {
	if t.Purpose != expected {
		return OutcomeInvalidPurpose
	}
	if t.UsedAt != nil {
		return OutcomeUsed
	}
	if !t.ExpiresAt.After(now) {
		return OutcomeExpired
	}
	return OutcomeOK
}

const valueEntropyBytes = 24

// newValue returns a URL-safe random token value.
func newValue() (string, error) {
	buf := make([]byte, valueEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: generate value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
