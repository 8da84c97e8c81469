package sms

import (
	"strings"
	"testing"
	"time"
)

func bucharest(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Bucharest")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestConfirmRequestText(t *testing.T) {
	loc := bucharest(t)
	// 2026-07-15 14:30 local is 11:30 UTC in summer time.
	start := time.Date(2026, 7, 15, 11, 30, 0, 0, time.UTC)

	got := ConfirmRequest(start, loc, 9, "https://x.ro/c/abc", "https://x.ro/x/def")

	want := "Aveti programare la clinica pe 15.07.2026, ora 14:30.\n" +
		"Confirmati pana azi la 09:00: https://x.ro/c/abc\n" +
		"Anulare: https://x.ro/x/def\n" +
		"Neconfirmarea duce la anulare automata."
	if got != want {
		t.Fatalf("confirm request text:\n%s\nwant:\n%s", got, want)
	}
}

func TestAutoCancelNoticeText(t *testing.T) {
	loc := bucharest(t)
	start := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	got := AutoCancelNotice(start, loc)
	if !strings.Contains(got, "20.01.2026, ora 10:00") {
		t.Fatalf("expected winter-time local rendering, got %q", got)
	}
	if !strings.Contains(got, "anulata automat") {
		t.Fatalf("expected auto-cancel wording, got %q", got)
	}
}

func TestConfirmedAckText(t *testing.T) {
	loc := bucharest(t)
	start := time.Date(2026, 7, 15, 11, 30, 0, 0, time.UTC)

	got := ConfirmedAck(start, loc)
	if got != "Programarea din 15.07.2026, ora 14:30 a fost confirmata. Va asteptam." {
		t.Fatalf("unexpected ack text: %q", got)
	}
}
