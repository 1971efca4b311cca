package schedule

import "github.com/studio-torajirou/kanrigamen/internal/models"

// SlotView is the derived, display-ready state of one slot: resolved
// capacity, guest tallies and the gating flags the editing UI obeys.
type SlotView struct {
	Slot          models.Slot    `json:"slot"`
	Capacity      int64          `json:"capacity"`
	CapacityKnown bool           `json:"capacity_known"`
	Tally         Tally          `json:"tally"`
	Guests        []models.Guest `json:"guests"`
	PriceLocked   bool           `json:"price_locked"`
	CanDelete     bool           `json:"can_delete"`
	LightColor    bool           `json:"light_color"`
}

// BuildSlotView derives the full view state for a slot. PriceLocked and
// CanDelete both come from the same active-reservation predicate, so the
// two locks can never disagree. CapacityKnown is false when the 0 came
// from the unresolved fallback rather than a real value.
func BuildSlotView(slot models.Slot, templates []models.Template) SlotView {
	res := ResolveCapacity(slot, templates)
	locked := HasActiveReservation(slot)

	return SlotView{
		Slot:          slot,
		Capacity:      res.Value,
		CapacityKnown: res.Source != SourceUnresolved,
		Tally:         TallyGuests(slot.Guests),
		Guests:        VisibleGuests(slot.Guests),
		PriceLocked:   locked,
		CanDelete:     !locked,
		LightColor:    IsLightColor(slot.Color),
	}
}

// BuildDayViews derives views for every active slot of one calendar day.
func BuildDayViews(date string, slots []models.Slot, templates []models.Template) []SlotView {
	day := DaySlots(date, slots)
	views := make([]SlotView, 0, len(day))
	for _, s := range day {
		views = append(views, BuildSlotView(s, templates))
	}
	return views
}
