package schedule

import (
	"sort"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// HistoryEntry is one booking in a customer's history, including the
// reservation's own status so cancellations stay visible.
type HistoryEntry struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Lesson string `json:"lesson"`
	Status string `json:"status"`
}

// HistoryForEmail scans all slots for guest entries whose email matches
// exactly (case-sensitive) and returns them most recent first: descending
// by date, then by start time within a date. Slots without a matching
// guest contribute nothing.
func HistoryForEmail(email string, slots []models.Slot) []HistoryEntry {
	if email == "" {
		return nil
	}

	var history []HistoryEntry
	for _, s := range slots {
		for _, g := range s.Guests {
			if g.Email != email {
				continue
			}
			history = append(history, HistoryEntry{
				Date:   s.Date,
				Time:   ShortTime(s.StartTime),
				Lesson: s.Name,
				Status: g.Status,
			})
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		if history[i].Date != history[j].Date {
			return history[i].Date > history[j].Date
		}
		return history[i].Time > history[j].Time
	})

	return history
}
