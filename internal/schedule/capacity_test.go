package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

func capPtr(v int64) *int64 { return &v }

func TestResolveCapacityDirect(t *testing.T) {
	slot := models.Slot{ID: "S1", Capacity: capPtr(12), TemplateID: "T1"}
	templates := []models.Template{{ID: "T1", Capacity: capPtr(99)}}

	res := ResolveCapacity(slot, templates)
	assert.Equal(t, int64(12), res.Value)
	assert.Equal(t, SourceSlot, res.Source)
}

func TestResolveCapacityDirectZero(t *testing.T) {
	// An explicit 0 is a set value, not a missing one.
	slot := models.Slot{ID: "S1", Capacity: capPtr(0), TemplateID: "T1"}
	templates := []models.Template{{ID: "T1", Capacity: capPtr(8)}}

	res := ResolveCapacity(slot, templates)
	assert.Equal(t, int64(0), res.Value)
	assert.Equal(t, SourceSlot, res.Source)
}

func TestResolveCapacityFromTemplate(t *testing.T) {
	slot := models.Slot{ID: "S1", TemplateID: "T1"}
	templates := []models.Template{
		{ID: "T2", Capacity: capPtr(4)},
		{ID: "T1", Capacity: capPtr(8)},
	}

	res := ResolveCapacity(slot, templates)
	assert.Equal(t, int64(8), res.Value)
	assert.Equal(t, SourceTemplate, res.Source)
}

func TestResolveCapacityTemplateWithoutValue(t *testing.T) {
	slot := models.Slot{ID: "S1", TemplateID: "T1"}
	templates := []models.Template{{ID: "T1"}}

	res := ResolveCapacity(slot, templates)
	assert.Equal(t, int64(0), res.Value)
	assert.Equal(t, SourceUnresolved, res.Source)
}

func TestResolveCapacityNoTemplateReference(t *testing.T) {
	res := ResolveCapacity(models.Slot{ID: "S1"}, []models.Template{{ID: "T1", Capacity: capPtr(8)}})
	assert.Equal(t, int64(0), res.Value)
	assert.Equal(t, SourceUnresolved, res.Source)
}

func TestResolveCapacityUnknownTemplate(t *testing.T) {
	res := ResolveCapacity(models.Slot{ID: "S1", TemplateID: "missing"}, []models.Template{{ID: "T1", Capacity: capPtr(8)}})
	assert.Equal(t, int64(0), res.Value)
	assert.Equal(t, SourceUnresolved, res.Source)
}

func TestResolveCapacityTemplateSelfReference(t *testing.T) {
	// A template row that somehow references itself must still resolve in
	// one hop; the lookup reads the template's raw field and never recurses.
	slot := models.Slot{ID: "S1", TemplateID: "T1"}
	templates := []models.Template{{ID: "T1"}}

	res := ResolveCapacity(slot, templates)
	assert.Equal(t, int64(0), res.Value)

	templates[0].Capacity = capPtr(6)
	res = ResolveCapacity(slot, templates)
	assert.Equal(t, int64(6), res.Value)
}

func TestResolveCapacityTrimsReference(t *testing.T) {
	slot := models.Slot{ID: "S1", TemplateID: " T1 "}
	templates := []models.Template{{ID: "T1", Capacity: capPtr(5)}}

	assert.Equal(t, int64(5), EffectiveCapacity(slot, templates))
}

func TestTemplateCapacity(t *testing.T) {
	assert.Equal(t, int64(0), TemplateCapacity(models.Template{ID: "T1"}))
	assert.Equal(t, int64(7), TemplateCapacity(models.Template{ID: "T1", Capacity: capPtr(7)}))
}
