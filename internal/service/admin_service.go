package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/studio-torajirou/kanrigamen/internal/backend"
	"github.com/studio-torajirou/kanrigamen/internal/domain"
	"github.com/studio-torajirou/kanrigamen/internal/events"
	"github.com/studio-torajirou/kanrigamen/internal/metrics"
	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/schedule"
)

// AdminService holds the current snapshot and forwards every mutation to
// the booking backend. The snapshot is never edited in place: after a
// successful mutation the whole thing is re-fetched and swapped.
type AdminService struct {
	backend  domain.Backend
	cache    domain.SnapshotCache
	audit    domain.AuditLog
	eventBus domain.EventPublisher
	exporter domain.Exporter
	logger   *zerolog.Logger
	now      func() time.Time

	snap atomic.Pointer[models.Snapshot]
}

func NewAdminService(be domain.Backend, cache domain.SnapshotCache, audit domain.AuditLog, eventBus domain.EventPublisher, exporter domain.Exporter, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		backend:  be,
		cache:    cache,
		audit:    audit,
		eventBus: eventBus,
		exporter: exporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Reload fetches a fresh snapshot and swaps it in. When the backend is
// down and nothing has been loaded yet, the last cached snapshot is
// served instead so the console can still come up read-only.
func (s *AdminService) Reload(ctx context.Context) error {
	snap, err := s.backend.FetchSnapshot(ctx)
	if err != nil {
		metrics.IncSnapshotReload("error")
		if s.snap.Load() == nil && s.cache != nil {
			cached, cacheErr := s.cache.Load(ctx)
			if cacheErr == nil && cached != nil {
				s.snap.Store(cached)
				metrics.SetSnapshotAge(s.now().Sub(cached.FetchedAt))
				s.logger.Warn().Err(err).
					Time("fetched_at", cached.FetchedAt).
					Msg("backend unreachable, serving cached snapshot")
				return nil
			}
		}
		return fmt.Errorf("failed to reload snapshot: %w", err)
	}

	s.snap.Store(snap)
	metrics.IncSnapshotReload("ok")
	metrics.SetSnapshotAge(s.now().Sub(snap.FetchedAt))

	if s.cache != nil {
		if err := s.cache.Save(ctx, snap); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache snapshot")
		}
	}

	_ = s.eventBus.PublishJSON(events.EventSnapshotReloaded, map[string]any{
		"slots":      len(snap.Slots),
		"fetched_at": snap.FetchedAt,
	})
	return nil
}

// Snapshot returns the current snapshot, or ErrNoSnapshot before the
// first successful load.
func (s *AdminService) Snapshot() (*models.Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (s *AdminService) MonthView(year int, month time.Month) (schedule.MonthGrid, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return schedule.MonthGrid{}, err
	}
	return schedule.BuildMonth(year, month, snap.Slots, s.now()), nil
}

func (s *AdminService) DayView(date string) ([]schedule.SlotView, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return schedule.BuildDayViews(date, snap.Slots, snap.Templates), nil
}

func (s *AdminService) SlotDetail(id string) (*schedule.SlotView, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	slot := snap.SlotByID(id)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	view := schedule.BuildSlotView(*slot, snap.Templates)
	return &view, nil
}

// SaveSlot creates or updates one slot through the backend. An empty
// SlotID means creation; creation is gated on date and rejects past
// dates. Edits keep the stored identity fields and refuse a price
// change while an active reservation exists.
func (s *AdminService) SaveSlot(ctx context.Context, input models.SlotInput) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}

	input.TemplateID = strings.TrimSpace(input.TemplateID)

	payload := map[string]any{
		"startTime": input.StartTime,
		"endTime":   input.EndTime,
		"price":     input.Price,
		"color":     input.Color,
		"isPublic":  input.Public,
	}
	if input.Capacity != nil {
		payload["capacity"] = *input.Capacity
	}

	if input.SlotID == "" {
		if input.Date == "" {
			return ErrDateRequired
		}
		if schedule.IsPastDate(input.Date, s.now()) {
			return schedule.ErrPastDate
		}

		name, teacher := input.Name, input.Teacher
		if input.TemplateID != "" {
			tpl := snap.TemplateByID(input.TemplateID)
			if tpl != nil {
				if name == "" {
					name = tpl.Name
				}
				if teacher == "" {
					teacher = tpl.Teacher
				}
				payload["description"] = tpl.Description
			} else {
				s.logger.Warn().Str("package_id", input.TemplateID).Msg("referenced package not found")
			}
			payload["packageId"] = input.TemplateID
		}
		if name == "" {
			return ErrNameRequired
		}
		if input.StartTime == "" || input.EndTime == "" {
			return ErrTimeRequired
		}

		payload["date"] = input.Date
		payload["lessonName"] = name
		payload["teacherName"] = teacher
	} else {
		slot := snap.SlotByID(input.SlotID)
		if slot == nil {
			return ErrSlotNotFound
		}
		if input.Price != slot.Price && schedule.HasActiveReservation(*slot) {
			return schedule.ErrHasReservations
		}

		name, teacher := input.Name, input.Teacher
		if name == "" {
			name = slot.Name
		}
		if teacher == "" {
			teacher = slot.Teacher
		}

		payload["slotId"] = slot.ID
		payload["date"] = slot.Date
		payload["packageId"] = slot.TemplateID
		payload["lessonName"] = name
		payload["teacherName"] = teacher
	}

	if _, err := s.backend.Call(ctx, backend.ActionSaveSlot, payload); err != nil {
		return err
	}

	targetID := input.SlotID
	if targetID == "" {
		targetID = "new"
	}
	s.recordAudit(ctx, events.EventSlotSaved, targetID, fmt.Sprintf("%s %s-%s", input.Date, input.StartTime, input.EndTime))
	_ = s.eventBus.PublishJSON(events.EventSlotSaved, events.SlotEventPayload{
		SlotID: input.SlotID,
		Name:   input.Name,
		Date:   input.Date,
	})

	return s.reloadAfterMutation(ctx)
}

// DeleteSlot soft-deletes a slot by saving it back with the deleted
// status. Slots holding an active reservation cannot be deleted.
func (s *AdminService) DeleteSlot(ctx context.Context, id string) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	slot := snap.SlotByID(id)
	if slot == nil {
		return ErrSlotNotFound
	}
	if schedule.HasActiveReservation(*slot) {
		return schedule.ErrHasReservations
	}

	payload := map[string]any{
		"slotId": slot.ID,
		"status": models.StatusDeleted,
	}
	if _, err := s.backend.Call(ctx, backend.ActionSaveSlot, payload); err != nil {
		return err
	}

	s.recordAudit(ctx, events.EventSlotDeleted, id, slot.Name)
	_ = s.eventBus.PublishJSON(events.EventSlotDeleted, events.SlotEventPayload{
		SlotID: id,
		Name:   slot.Name,
		Date:   slot.Date,
	})

	return s.reloadAfterMutation(ctx)
}

func (s *AdminService) Templates() ([]models.Template, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Templates, nil
}

func (s *AdminService) SaveTemplate(ctx context.Context, input models.TemplateInput) error {
	if _, err := s.Snapshot(); err != nil {
		return err
	}
	if input.Name == "" {
		return ErrNameRequired
	}

	payload := map[string]any{
		"lessonName":  input.Name,
		"teacherName": input.Teacher,
		"description": input.Description,
		"price":       input.Price,
		"color":       input.Color,
		"isPublic":    input.Public,
	}
	if input.TemplateID != "" {
		payload["packageId"] = input.TemplateID
	}
	if input.Capacity != nil {
		payload["capacity"] = *input.Capacity
	}

	if _, err := s.backend.Call(ctx, backend.ActionSaveTemplate, payload); err != nil {
		return err
	}

	targetID := input.TemplateID
	if targetID == "" {
		targetID = "new"
	}
	s.recordAudit(ctx, events.EventPackageSaved, targetID, input.Name)
	_ = s.eventBus.PublishJSON(events.EventPackageSaved, map[string]any{
		"package_id": input.TemplateID,
		"name":       input.Name,
	})

	return s.reloadAfterMutation(ctx)
}

func (s *AdminService) DeleteTemplate(ctx context.Context, id string) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	tpl := snap.TemplateByID(id)
	if tpl == nil {
		return ErrTemplateNotFound
	}

	payload := map[string]any{
		"packageId": id,
		"status":    models.StatusDeleted,
	}
	if _, err := s.backend.Call(ctx, backend.ActionSaveTemplate, payload); err != nil {
		return err
	}

	s.recordAudit(ctx, events.EventPackageDeleted, id, tpl.Name)
	_ = s.eventBus.PublishJSON(events.EventPackageDeleted, map[string]any{
		"package_id": id,
		"name":       tpl.Name,
	})

	return s.reloadAfterMutation(ctx)
}

// ForceCancel asks the backend to cancel one reservation. Waitlist
// promotion and the customer email happen backend-side; the reload
// picks up the result.
func (s *AdminService) ForceCancel(ctx context.Context, reservationID string) error {
	if _, err := s.Snapshot(); err != nil {
		return err
	}

	payload := map[string]any{"reservationId": reservationID}
	if _, err := s.backend.Call(ctx, backend.ActionForceCancel, payload); err != nil {
		return err
	}

	s.recordAudit(ctx, events.EventReservationForceCancel, reservationID, "")
	_ = s.eventBus.PublishJSON(events.EventReservationForceCancel, map[string]any{
		"reservation_id": reservationID,
	})

	return s.reloadAfterMutation(ctx)
}

func (s *AdminService) Settings() (models.Settings, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return models.Settings{}, err
	}
	return snap.Settings, nil
}

func (s *AdminService) SaveSettings(ctx context.Context, settings models.Settings) error {
	payload := map[string]any{
		"studioName":   settings.StudioName,
		"concept":      settings.Concept,
		"address":      settings.Address,
		"contactEmail": settings.ContactEmail,
		"facilities":   settings.Facilities,
	}
	if _, err := s.backend.Call(ctx, backend.ActionSaveSettings, payload); err != nil {
		return err
	}

	s.recordAudit(ctx, events.EventSettingsSaved, "", settings.StudioName)
	_ = s.eventBus.PublishJSON(events.EventSettingsSaved, map[string]any{
		"studio_name": settings.StudioName,
	})

	return s.reloadAfterMutation(ctx)
}

// Customers filters by a contains match on name or phone. An empty
// query returns everyone.
func (s *AdminService) Customers(query string) ([]models.Customer, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return snap.Customers, nil
	}

	var matched []models.Customer
	for _, c := range snap.Customers {
		if strings.Contains(c.Name, query) || strings.Contains(c.Phone, query) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *AdminService) CustomerDetail(id string) (*models.Customer, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	c := snap.CustomerByID(id)
	if c == nil {
		return nil, ErrCustomerNotFound
	}
	return c, nil
}

func (s *AdminService) CustomerHistory(email string) ([]schedule.HistoryEntry, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return schedule.HistoryForEmail(email, snap.Slots), nil
}

func (s *AdminService) ExportMonth(ctx context.Context, year int, month time.Month) (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	path, err := s.exporter.MonthWorkbook(snap, year, month)
	if err != nil {
		return "", err
	}
	s.recordAudit(ctx, "month_exported", fmt.Sprintf("%04d-%02d", year, int(month)), path)
	return path, nil
}

func (s *AdminService) RecentAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.RecentAudit(ctx, limit)
}

func (s *AdminService) AuditForTarget(ctx context.Context, targetID string) ([]*models.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.AuditByTarget(ctx, targetID)
}

// recordAudit is best-effort: a failed local log never rolls back a
// backend mutation that already happened.
func (s *AdminService) recordAudit(ctx context.Context, action, targetID, detail string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditEntry{
		Action:    action,
		TargetID:  targetID,
		Actor:     actorFrom(ctx),
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.InsertAudit(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

// reloadAfterMutation keeps the snapshot consistent with the backend.
// The mutation itself already succeeded, so a failed refresh is logged
// and the stale snapshot stays in place until the next reload.
func (s *AdminService) reloadAfterMutation(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("snapshot reload after mutation failed")
	}
	return nil
}

type actorKey struct{}

// WithActor tags the context with the staff identity performing the
// request, for the audit log.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return ""
}
