// Package schedule implements the reconciliation and aggregation engine of
// the admin console: capacity resolution with template fallback, guest
// tallies, gating predicates, the month calendar grid and customer booking
// history. Every function is a pure transformation over a snapshot supplied
// by the caller; nothing here mutates state or talks to the backend.
package schedule

import "github.com/studio-torajirou/kanrigamen/internal/models"

// StatusClass is the single classification of a guest status string.
// Both gating and tallies go through Classify so that a future status
// value added backend-side shows up as Unknown instead of being counted
// two different ways.
type StatusClass int

const (
	StatusUnknown StatusClass = iota
	StatusActiveReserved
	StatusActiveWaitlisted
	StatusInactive
)

// Classify maps a raw status string onto its class. Unknown statuses are
// inert: they never count toward capacity and never block deletion.
func Classify(status string) StatusClass {
	switch status {
	case models.StatusReserved:
		return StatusActiveReserved
	case models.StatusWaitlisted:
		return StatusActiveWaitlisted
	case models.StatusCancelled:
		return StatusInactive
	default:
		return StatusUnknown
	}
}

// Active reports whether a status represents a live claim on a seat.
func (c StatusClass) Active() bool {
	return c == StatusActiveReserved || c == StatusActiveWaitlisted
}
