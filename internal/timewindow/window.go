// Package timewindow holds the calendar arithmetic behind the
// confirmation flow: which local day a snapshot or job targets, how a
// local day maps onto a UTC range for querying, and when today's
// confirmation deadline falls. Everything is pure and deterministic
// given a location and a reference instant; all storage-facing values
// are UTC.
package timewindow

import (
	"fmt"
	"strings"
	"time"
)

// LoadLocation resolves an IANA timezone name. An unknown zone is an
// error for the caller to surface; we never fall back to UTC.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timewindow: load timezone %q: %w", name, err)
	}
	return loc, nil
}

// StartOfDay returns local midnight of the day containing now in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// TomorrowLocal returns local midnight one calendar day after now.
func TomorrowLocal(now time.Time, loc *time.Location) time.Time {
	return StartOfDay(now, loc).AddDate(0, 0, 1)
}

// DayAfterTomorrowLocal returns local midnight two calendar days after now.
func DayAfterTomorrowLocal(now time.Time, loc *time.Location) time.Time {
	return StartOfDay(now, loc).AddDate(0, 0, 2)
}

// DayRangeUTC converts a local day (its midnight) into the half-open
// UTC interval [day 00:00, day+1 00:00). Appointments are matched with
// start >= lo AND start < hi.
func DayRangeUTC(localDay time.Time) (lo, hi time.Time) {
	return localDay.UTC(), localDay.AddDate(0, 0, 1).UTC()
}

// DeadlineUTC returns today's local midnight plus deadlineHour,
// converted to UTC. deadlineHour is compared within the same local
// calendar day; no cross-midnight deadline exists.
func DeadlineUTC(now time.Time, loc *time.Location, deadlineHour int) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, deadlineHour, 0, 0, 0, loc).UTC()
}

// FormatDate renders an instant as dd.mm.yyyy in the given zone.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006")
}

// FormatClock renders an instant as HH:MM in the given zone.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// LocalDayKey renders the local calendar day of an instant as
// yyyy-mm-dd.
func LocalDayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// parseLayouts are tried in order for feed datetimes without an
// explicit offset; they are interpreted in the clinic's zone.
var parseLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// offsetLayouts carry their own zone and are honored as written.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// ParseDateTime normalizes a feed-supplied datetime string to a UTC
// instant. Strings with an explicit offset or Z keep it; everything
// else is read as clinic-local wall time.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("timewindow: empty datetime")
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timewindow: invalid datetime format: %q", value)
}
