package sms

import (
	"fmt"
	"strings"
	"time"

	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
)

// Message texts are Romanian without diacritics so they survive every
// GSM-7 gateway unmangled.

// ConfirmRequest is the initial text asking the patient to confirm or
// cancel before today's deadline.
func ConfirmRequest(startAt time.Time, loc *time.Location, deadlineHour int, confirmLink, cancelLink string) string {
	date := timewindow.FormatDate(startAt, loc)
	clock := timewindow.FormatClock(startAt, loc)
	deadline := fmt.Sprintf("%02d:00", deadlineHour)

	return strings.Join([]string{
		fmt.Sprintf("Aveti programare la clinica pe %s, ora %s.", date, clock),
		fmt.Sprintf("Confirmati pana azi la %s: %s", deadline, confirmLink),
		fmt.Sprintf("Anulare: %s", cancelLink),
		"Neconfirmarea duce la anulare automata.",
	}, "\n")
}

// AutoCancelNotice tells the patient the appointment was canceled for
// lack of confirmation.
func AutoCancelNotice(startAt time.Time, loc *time.Location) string {
	date := timewindow.FormatDate(startAt, loc)
	clock := timewindow.FormatClock(startAt, loc)

	return strings.Join([]string{
		fmt.Sprintf("Programarea din %s, ora %s a fost anulata automat deoarece nu a fost confirmata pana la termen.", date, clock),
		"Pentru reprogramare, contactati clinica.",
	}, "\n")
}

// ConfirmedAck acknowledges a successful confirmation.
func ConfirmedAck(startAt time.Time, loc *time.Location) string {
	date := timewindow.FormatDate(startAt, loc)
	clock := timewindow.FormatClock(startAt, loc)

	return fmt.Sprintf("Programarea din %s, ora %s a fost confirmata. Va asteptam.", date, clock)
}
