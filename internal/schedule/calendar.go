package schedule

import (
	"sort"
	"time"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// DayCell is one calendar day in the month grid.
type DayCell struct {
	Date    string        `json:"date"` // 2006-01-02
	Day     int           `json:"day"`
	InMonth bool          `json:"in_month"`
	Today   bool          `json:"today"`
	Slots   []models.Slot `json:"slots"`
}

// MonthGrid is the full-week calendar for one month: the grid runs from the
// Sunday on or before the 1st through the Saturday on or after the last day,
// so every week row has exactly seven cells.
type MonthGrid struct {
	Year  int         `json:"year"`
	Month time.Month  `json:"month"`
	Start string      `json:"start"`
	End   string      `json:"end"`
	Weeks [][]DayCell `json:"weeks"`
}

// BuildMonth produces the grid for year/month. Slot placement: active slots
// whose date equals the cell's date, sorted ascending by start time. The
// span is computed in closed form over UTC civil dates, so the day walk has
// a known length and needs no defensive iteration cap.
func BuildMonth(year int, month time.Month, slots []models.Slot, today time.Time) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday)-int(last.Weekday()))

	days := int(end.Sub(start).Hours()/24) + 1

	byDate := slotsByDate(slots)
	todayStr := today.Format(models.DateLayout)

	grid := MonthGrid{
		Year:  year,
		Month: month,
		Start: start.Format(models.DateLayout),
		End:   end.Format(models.DateLayout),
		Weeks: make([][]DayCell, 0, days/7),
	}

	var week []DayCell
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		dateStr := day.Format(models.DateLayout)
		week = append(week, DayCell{
			Date:    dateStr,
			Day:     day.Day(),
			InMonth: day.Month() == month,
			Today:   dateStr == todayStr,
			Slots:   byDate[dateStr],
		})
		if day.Weekday() == time.Saturday {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}

	return grid
}

// DaySlots returns the active slots of one calendar day, sorted ascending
// by start time. Soft-deleted slots are invisible.
func DaySlots(date string, slots []models.Slot) []models.Slot {
	var day []models.Slot
	for _, s := range slots {
		if s.Date == date && s.Status != models.StatusDeleted {
			day = append(day, s)
		}
	}
	sortByStart(day)
	return day
}

// ShortTime trims a backend time value to HH:MM for display.
func ShortTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

func slotsByDate(slots []models.Slot) map[string][]models.Slot {
	byDate := make(map[string][]models.Slot)
	for _, s := range slots {
		if s.Status == models.StatusDeleted || s.Date == "" {
			continue
		}
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	for date := range byDate {
		sortByStart(byDate[date])
	}
	return byDate
}

// Start times are zero-padded HH:MM, so lexicographic order is
// chronological order.
func sortByStart(slots []models.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
}
