// Package record normalizes the heterogeneous row shapes returned by the
// booking backend into canonical structs. The sheet data accumulated several
// naming generations (English camelCase and Japanese column headers), so every
// logical field is resolved through an ordered alias list, canonical names
// first. Normalization happens once, at snapshot ingestion; nothing outside
// this package touches raw maps.
package record

import (
	"strconv"
	"strings"
)

// Resolve returns the first value among keys that is present, non-nil and not
// an empty string, reporting whether one was found. A nil record resolves to
// nothing. Alias order matters: callers list current key names before legacy
// ones, which makes column renames transparent.
func Resolve(rec map[string]any, keys []string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String resolves a field as a string, falling back to def.
func String(rec map[string]any, keys []string, def string) string {
	v, ok := Resolve(rec, keys)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return def
	}
}

// Int64 resolves a field as a non-negative integer. Absent fields fall back
// to def; present but non-numeric values coerce to 0 rather than failing,
// and negatives clamp to 0.
func Int64(rec map[string]any, keys []string, def int64) int64 {
	v, ok := Resolve(rec, keys)
	if !ok {
		return def
	}
	return coerceInt64(v)
}

// Number resolves an optional numeric field: nil when absent, otherwise a
// pointer to the coerced value. This keeps "no capacity of its own" and
// "capacity 0" distinguishable, which the template fallback relies on.
func Number(rec map[string]any, keys []string) *int64 {
	v, ok := Resolve(rec, keys)
	if !ok {
		return nil
	}
	n := coerceInt64(v)
	return &n
}

// Flag resolves a public/visibility field. The backend stored the flag in
// several generations of truthy markers; everything else is false.
func Flag(rec map[string]any, keys []string) bool {
	v, ok := Resolve(rec, keys)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case string:
		return t == "1" || t == "公開" || t == "表示"
	default:
		return false
	}
}

func coerceInt64(v any) int64 {
	var n int64
	switch t := v.(type) {
	case float64:
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		n = int64(f)
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
