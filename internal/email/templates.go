package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/atwonio16/noshowdentalclinic/internal/timewindow"
)

// CancelReason distinguishes who canceled when notifying the clinic.
type CancelReason string

const (
	CancelReasonAuto    CancelReason = "auto"
	CancelReasonPatient CancelReason = "patient"
)

// ClinicCancelNoticeInput carries everything the staff notice renders.
type ClinicCancelNoticeInput struct {
	ClinicName      string
	StartAt         time.Time
	Location        *time.Location
	AppointmentType string
	PatientName     *string
	ProviderName    *string
	Reason          CancelReason
}

// ClinicCancelNotice renders the subject and plain text body of the
// cancellation notice sent to clinic staff.
func ClinicCancelNotice(in ClinicCancelNoticeInput) (subject, body string) {
	date := timewindow.FormatDate(in.StartAt, in.Location)
	clock := timewindow.FormatClock(in.StartAt, in.Location)

	reasonText := "a fost anulata de pacient"
	if in.Reason == CancelReasonAuto {
		reasonText = "a fost anulata automat (neconfirmata la termen)"
	}

	lines := []string{
		fmt.Sprintf("Programarea %s.", reasonText),
		fmt.Sprintf("Data: %s", date),
		fmt.Sprintf("Ora: %s", clock),
		fmt.Sprintf("Tip: %s", in.AppointmentType),
	}
	if in.PatientName != nil && *in.PatientName != "" {
		lines = append(lines, fmt.Sprintf("Pacient: %s", *in.PatientName))
	}
	if in.ProviderName != nil && *in.ProviderName != "" {
		lines = append(lines, fmt.Sprintf("Medic: %s", *in.ProviderName))
	}

	subject = fmt.Sprintf("[Confirmor] Programare anulata - %s", in.ClinicName)
	return subject, strings.Join(lines, "\n")
}
