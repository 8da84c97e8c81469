package token

import (
	"testing"
	"time"
)

func TestValidatePrecedence(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	// Wrong purpose wins even when the token is also used and expired.
	tok := &Token{Purpose: PurposeCancel, UsedAt: &past, ExpiresAt: past}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeInvalidPurpose {
		t.Fatalf("wrong purpose on used+expired token = %s, want invalid_purpose", got)
	}

	// Used wins over expired when the purpose matches.
	tok = &Token{Purpose: PurposeConfirm, UsedAt: &past, ExpiresAt: past}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeUsed {
		t.Fatalf("used+expired token = %s, want used", got)
	}

	tok = &Token{Purpose: PurposeConfirm, ExpiresAt: past}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeExpired {
		t.Fatalf("expired token = %s, want expired", got)
	}

	tok = &Token{Purpose: PurposeConfirm, ExpiresAt: now.Add(time.Hour)}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeOK {
		t.Fatalf("fresh token = %s, want ok", got)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)

	tok := &Token{Purpose: PurposeConfirm, ExpiresAt: now.Add(-time.Second)}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeExpired {
		t.Fatalf("one second past expiry = %s, want expired", got)
	}

	tok = &Token{Purpose: PurposeConfirm, ExpiresAt: now.Add(time.Second)}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeOK {
		t.Fatalf("one second before expiry = %s, want ok", got)
	}

	// expires_at == now counts as expired: the invariant is expires_at > now.
	tok = &Token{Purpose: PurposeConfirm, ExpiresAt: now}
	if got := Validate(tok, PurposeConfirm, now); got != OutcomeExpired {
		t.Fatalf("expiry at now = %s, want expired", got)
	}
}

func TestNewValueProperties(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		v, err := newValue()
		if err != nil {
			t.Fatalf("new value: %v", err)
		}
		// 24 bytes base64url without padding.
		if len(v) != 32 {
			t.Fatalf("value length = %d, want 32", len(v))
		}
		if seen[v] {
			t.Fatalf("duplicate token value generated: %s", v)
		}
		seen[v] = true
	}
}
