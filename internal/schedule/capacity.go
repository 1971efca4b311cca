package schedule

import (
	"strings"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// CapacitySource tells where an effective capacity came from.
type CapacitySource int

const (
	// SourceUnresolved: neither the slot nor its template carries a value;
	// the capacity defaults to 0. Not an error, but worth surfacing.
	SourceUnresolved CapacitySource = iota
	// SourceSlot: the slot carries its own capacity.
	SourceSlot
	// SourceTemplate: inherited from the referenced template.
	SourceTemplate
)

// Resolution is the result of capacity lookup. Value is always a
// non-negative integer; Source makes the 0-fallback visible to callers
// that want to warn about it.
type Resolution struct {
	Value  int64
	Source CapacitySource
}

// ResolveCapacity computes a slot's effective capacity.
//
// A capacity set directly on the slot wins. Otherwise the slot's template
// reference is looked up in templates by string-normalized ID; the match
// contributes its own raw capacity field. The template's value is
// deliberately not re-resolved through this function: a template is never a
// slot-with-a-template, so a second hop could only be fed by malformed data
// (such as a template referencing itself) and would not terminate. One flat
// hop, then 0.
func ResolveCapacity(slot models.Slot, templates []models.Template) Resolution {
	if slot.Capacity != nil {
		return Resolution{Value: *slot.Capacity, Source: SourceSlot}
	}

	ref := strings.TrimSpace(slot.TemplateID)
	if ref == "" {
		return Resolution{}
	}

	for _, tpl := range templates {
		if strings.TrimSpace(tpl.ID) != ref {
			continue
		}
		if tpl.Capacity == nil {
			return Resolution{}
		}
		return Resolution{Value: *tpl.Capacity, Source: SourceTemplate}
	}

	return Resolution{}
}

// EffectiveCapacity returns just the resolved value.
func EffectiveCapacity(slot models.Slot, templates []models.Template) int64 {
	return ResolveCapacity(slot, templates).Value
}

// TemplateCapacity reads a template's own capacity with the 0 default,
// for display in the template editor.
func TemplateCapacity(tpl models.Template) int64 {
	if tpl.Capacity == nil {
		return 0
	}
	return *tpl.Capacity
}
