package csvimport

import (
	"strings"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
)

// MapFeedStatus translates a feed status cell into a lifecycle status.
// The feed mixes English and Romanian spellings; anything unrecognized
// maps to zero, meaning "no opinion".
func MapFeedStatus(raw string) appointment.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed", "confirmat":
		return appointment.StatusConfirmed
	case "canceled", "cancelled", "anulat", "canceled_by_patient":
		return appointment.StatusCanceledByPatient
	case "canceled_auto", "auto_canceled", "anulat_automat":
		return appointment.StatusCanceledAuto
	case "pending", "scheduled", "programat":
		return appointment.StatusPending
	}
	return ""
}

// ResolveStatus ranks what we already know against what the feed says.
// A confirmation or automatic cancellation recorded here always beats
// the feed: the clinic's scheduling system never learns about either,
// so its snapshot would otherwise reset them on every import. Otherwise
// the feed wins, and with no opinion on either side the row is pending.
func ResolveStatus(existing, feed appointment.Status) appointment.Status {
	if existing == appointment.StatusConfirmed || existing == appointment.StatusCanceledAuto {
		return existing
	}
	if feed != "" {
		return feed
	}
	return appointment.StatusPending
}
