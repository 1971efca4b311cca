package schedule

import "github.com/studio-torajirou/kanrigamen/internal/models"

// Tally is the per-slot reservation count split by status.
type Tally struct {
	Reserved   int `json:"reserved"`
	Waitlisted int `json:"waitlisted"`
}

// Total is the number of active claims on the slot.
func (t Tally) Total() int {
	return t.Reserved + t.Waitlisted
}

// TallyGuests counts reserved and waitlisted guests in a single pass.
// Cancelled and unknown statuses are ignored; the result is independent
// of guest order.
func TallyGuests(guests []models.Guest) Tally {
	var t Tally
	for _, g := range guests {
		switch Classify(g.Status) {
		case StatusActiveReserved:
			t.Reserved++
		case StatusActiveWaitlisted:
			t.Waitlisted++
		}
	}
	return t
}

// VisibleGuests returns the guests shown in the slot detail list:
// cancelled entries are dropped, original order is preserved.
func VisibleGuests(guests []models.Guest) []models.Guest {
	out := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if Classify(g.Status) == StatusInactive {
			continue
		}
		out = append(out, g)
	}
	return out
}
