package domain

import (
	"context"
	"time"

	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/schedule"
)

// Backend is the booking engine's generic action/payload endpoint. It owns
// reservations, notification email and waitlist promotion; the console only
// submits mutations and re-fetches the snapshot.
type Backend interface {
	Call(ctx context.Context, action string, payload map[string]any) (map[string]any, error)
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotCache stores the last good snapshot so the console can come up
// while the backend is briefly unreachable. Load returns (nil, nil) when
// the cache is empty.
type SnapshotCache interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
	Clear(ctx context.Context) error
}

// AuditLog is the console's local record of staff operations.
type AuditLog interface {
	InsertAudit(ctx context.Context, entry *models.AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error)
	AuditByTarget(ctx context.Context, targetID string) ([]*models.AuditEntry, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Exporter writes schedule workbooks to local disk.
type Exporter interface {
	MonthWorkbook(snap *models.Snapshot, year int, month time.Month) (string, error)
}

// AdminService is the console's full operation surface, consumed by the
// HTTP API.
type AdminService interface {
	Reload(ctx context.Context) error
	Snapshot() (*models.Snapshot, error)

	MonthView(year int, month time.Month) (schedule.MonthGrid, error)
	DayView(date string) ([]schedule.SlotView, error)
	SlotDetail(id string) (*schedule.SlotView, error)

	SaveSlot(ctx context.Context, input models.SlotInput) error
	DeleteSlot(ctx context.Context, id string) error

	Templates() ([]models.Template, error)
	SaveTemplate(ctx context.Context, input models.TemplateInput) error
	DeleteTemplate(ctx context.Context, id string) error

	ForceCancel(ctx context.Context, reservationID string) error

	Settings() (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	Customers(query string) ([]models.Customer, error)
	CustomerDetail(id string) (*models.Customer, error)
	CustomerHistory(email string) ([]schedule.HistoryEntry, error)

	ExportMonth(ctx context.Context, year int, month time.Month) (string, error)
	RecentAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error)
	AuditForTarget(ctx context.Context, targetID string) ([]*models.AuditEntry, error)
}
