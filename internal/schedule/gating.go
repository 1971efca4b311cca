package schedule

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

var (
	// ErrPastDate rejects slot creation on an already-elapsed date.
	ErrPastDate = errors.New("date is in the past")

	// ErrHasReservations rejects price edits and deletion of a slot that
	// still has an active (reserved or waitlisted) guest.
	ErrHasReservations = errors.New("slot has active reservations")
)

// IsPastDate reports whether dateStr falls strictly before today, comparing
// calendar days only. A malformed date is not treated as past; gating stays
// permissive and the backend remains the final authority.
func IsPastDate(dateStr string, today time.Time) bool {
	target, err := time.ParseInLocation(models.DateLayout, dateStr, today.Location())
	if err != nil {
		return false
	}
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return target.Before(midnight)
}

// HasActiveReservation reports whether any guest holds a live claim on the
// slot. It classifies raw statuses directly rather than summing a tally, so
// the answer can never drift from the status vocabulary.
func HasActiveReservation(slot models.Slot) bool {
	for _, g := range slot.Guests {
		if Classify(g.Status).Active() {
			return true
		}
	}
	return false
}

// IsLightColor reports whether a 6-digit hex color (leading # optional) is
// perceptually light, using the 0.299/0.587/0.114 luma weights with a 155
// threshold. Used to pick a readable foreground color; an unparsable value
// counts as light so text defaults to dark.
func IsLightColor(hex string) bool {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return true
	}
	r, errR := strconv.ParseUint(hex[0:2], 16, 8)
	g, errG := strconv.ParseUint(hex[2:4], 16, 8)
	b, errB := strconv.ParseUint(hex[4:6], 16, 8)
	if errR != nil || errG != nil || errB != nil {
		return true
	}
	brightness := (float64(r)*299 + float64(g)*587 + float64(b)*114) / 1000
	return brightness > 155
}
