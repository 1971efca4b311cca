package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

func TestTallyGuests(t *testing.T) {
	guests := []models.Guest{
		{ID: "G1", Status: models.StatusReserved},
		{ID: "G2", Status: models.StatusWaitlisted},
		{ID: "G3", Status: models.StatusCancelled},
	}

	tally := TallyGuests(guests)
	assert.Equal(t, 1, tally.Reserved)
	assert.Equal(t, 1, tally.Waitlisted)
	assert.Equal(t, 2, tally.Total())
}

func TestTallyGuestsOrderIndependent(t *testing.T) {
	guests := []models.Guest{
		{ID: "G1", Status: models.StatusReserved},
		{ID: "G2", Status: models.StatusReserved},
		{ID: "G3", Status: models.StatusWaitlisted},
		{ID: "G4", Status: models.StatusCancelled},
	}

	want := TallyGuests(guests)

	permutations := [][]int{
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}
	for _, perm := range permutations {
		shuffled := make([]models.Guest, len(guests))
		for i, idx := range perm {
			shuffled[i] = guests[idx]
		}
		assert.Equal(t, want, TallyGuests(shuffled))
	}
}

func TestTallyGuestsIgnoresUnknownStatus(t *testing.T) {
	guests := []models.Guest{
		{ID: "G1", Status: models.StatusReserved},
		{ID: "G2", Status: "no-show"},
		{ID: "G3", Status: ""},
	}

	tally := TallyGuests(guests)
	assert.Equal(t, 1, tally.Reserved)
	assert.Equal(t, 0, tally.Waitlisted)
}

func TestTallyGuestsEmpty(t *testing.T) {
	assert.Equal(t, Tally{}, TallyGuests(nil))
}

func TestVisibleGuests(t *testing.T) {
	guests := []models.Guest{
		{ID: "G1", Status: models.StatusReserved},
		{ID: "G2", Status: models.StatusWaitlisted},
		{ID: "G3", Status: models.StatusCancelled},
	}

	visible := VisibleGuests(guests)
	assert.Len(t, visible, 2)
	assert.Equal(t, "G1", visible[0].ID)
	assert.Equal(t, "G2", visible[1].ID)
}

func TestVisibleGuestsKeepsUnknownStatus(t *testing.T) {
	// Only cancelled entries disappear from the list; anything the
	// console does not recognize stays visible for the staff to see.
	guests := []models.Guest{
		{ID: "G1", Status: "no-show"},
		{ID: "G2", Status: models.StatusCancelled},
	}

	visible := VisibleGuests(guests)
	assert.Len(t, visible, 1)
	assert.Equal(t, "G1", visible[0].ID)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusActiveReserved, Classify(models.StatusReserved))
	assert.Equal(t, StatusActiveWaitlisted, Classify(models.StatusWaitlisted))
	assert.Equal(t, StatusInactive, Classify(models.StatusCancelled))
	assert.Equal(t, StatusUnknown, Classify("no-show"))

	assert.True(t, Classify(models.StatusReserved).Active())
	assert.True(t, Classify(models.StatusWaitlisted).Active())
	assert.False(t, Classify(models.StatusCancelled).Active())
	assert.False(t, Classify("no-show").Active())
}
