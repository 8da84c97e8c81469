package timewindow

import (
	"testing"
	"time"
)

func bucharest(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadLocation("Europe/Bucharest")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestLoadLocationUnknownZone(t *testing.T) {
	if _, err := LoadLocation("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestDayAfterTomorrowLocal(t *testing.T) {
	loc := bucharest(t)
	// 2026-03-10 23:30 UTC is already 2026-03-11 01:30 in Bucharest.
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	day := DayAfterTomorrowLocal(now, loc)

	want := time.Date(2026, 3, 13, 0, 0, 0, 0, loc)
	if !day.Equal(want) {
		t.Fatalf("day after tomorrow = %s, want %s", day, want)
	}
}

func TestDayRangeUTC(t *testing.T) {
	loc := bucharest(t)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, loc)

	lo, hi := DayRangeUTC(day)

	// Bucharest is UTC+2 in winter.
	if want := time.Date(2026, 1, 14, 22, 0, 0, 0, time.UTC); !lo.Equal(want) {
		t.Errorf("range start = %s, want %s", lo, want)
	}
	if want := time.Date(2026, 1, 15, 22, 0, 0, 0, time.UTC); !hi.Equal(want) {
		t.Errorf("range end = %s, want %s", hi, want)
	}
}

func TestDayRangeUTCAcrossDSTTransition(t *testing.T) {
	loc := bucharest(t)
	// 2026-03-29 is the spring-forward day in Romania; the local day is
	// only 23 hours long.
	day := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)

	lo, hi := DayRangeUTC(day)

	if got := hi.Sub(lo); got != 23*time.Hour {
		t.Fatalf("DST day length = %s, want 23h", got)
	}
}

func TestDeadlineUTC(t *testing.T) {
	loc := bucharest(t)
	now := time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC) // 09:00 local

	deadline := DeadlineUTC(now, loc, 18)

	// Bucharest is UTC+3 in summer: 18:00 local = 15:00 UTC.
	want := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	if !deadline.Equal(want) {
		t.Fatalf("deadline = %s, want %s", deadline, want)
	}
}

func TestParseDateTime(t *testing.T) {
	loc := bucharest(t)

	cases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"space separated with seconds", "2026-02-10 14:30:00", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
		{"space separated without seconds", "2026-02-10 14:30", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
		{"iso local", "2026-02-10T14:30:00", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
		{"iso with offset", "2026-02-10T14:30:00+02:00", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
		{"iso zulu", "2026-02-10T12:30:00Z", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
		{"padded", "  2026-02-10 14:30  ", time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDateTime(tc.input, loc)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.input, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("parse %q = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseDateTimeRejectsGarbage(t *testing.T) {
	loc := bucharest(t)
	for _, input := range []string{"", "tomorrow", "10/02/2026 14:30", "2026-13-40 99:99"} {
		if _, err := ParseDateTime(input, loc); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	loc := bucharest(t)
	instant := time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)

	if got := FormatDate(instant, loc); got != "10.02.2026" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatClock(instant, loc); got != "14:30" {
		t.Errorf("FormatClock = %q", got)
	}
	if got := LocalDayKey(instant, loc); got != "2026-02-10" {
		t.Errorf("LocalDayKey = %q", got)
	}
}
