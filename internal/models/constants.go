package models

// Reservation status vocabulary as stored by the booking backend.
// The values are the literal Japanese strings used in the sheets;
// the console treats them as opaque markers.
const (
	StatusReserved   = "予約"
	StatusWaitlisted = "キャンセル待ち"
	StatusCancelled  = "キャンセル"
)

// StatusDeleted marks soft-deleted slots and templates. Deleted rows
// stay in the backend data but are invisible to the console.
const StatusDeleted = "削除"

const (
	// DateLayout is the calendar-day format used throughout the backend data.
	DateLayout = "2006-01-02"

	// TimeLayout is the zero-padded start/end time format. Lexicographic
	// comparison of values in this layout matches chronological order.
	TimeLayout = "15:04"
)

const (
	// DefaultSnapshotTTL bounds how long a cached snapshot may serve
	// as a fallback when the backend is unreachable (seconds).
	DefaultSnapshotTTL = 24 * 60 * 60

	// DefaultRefreshInterval is how often the background worker
	// re-fetches the snapshot (seconds).
	DefaultRefreshInterval = 5 * 60

	// DefaultBackendTimeout for a single backend round trip (seconds).
	DefaultBackendTimeout = 30

	// DefaultExportColWidth for generated xlsx sheets.
	DefaultExportColWidth = 18
)

// DefaultColor is used when a record carries no calendar color.
const DefaultColor = "#ccc"
