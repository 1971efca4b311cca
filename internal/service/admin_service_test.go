package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studio-torajirou/kanrigamen/internal/backend"
	"github.com/studio-torajirou/kanrigamen/internal/events"
	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/schedule"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Call(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	args := m.Called(ctx, action, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockBackend) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Save(ctx context.Context, snap *models.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockCache) Load(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *mockCache) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAudit) RecentAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

func (m *mockAudit) AuditByTarget(ctx context.Context, targetID string) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

func capPtr(v int64) *int64 { return &v }

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Slots: []models.Slot{
			{
				ID: "s1", Name: "ヨガ入門", Teacher: "山田", Date: "2026-03-10",
				StartTime: "10:00", EndTime: "11:00", Price: 3000, Capacity: capPtr(6),
				Guests: []models.Guest{
					{ID: "r1", Name: "田中", Email: "tanaka@example.com", Status: models.StatusReserved},
				},
			},
			{
				ID: "s2", Name: "ピラティス", Date: "2026-03-10",
				StartTime: "18:00", EndTime: "19:00", Price: 3500,
				Guests: []models.Guest{
					{ID: "r2", Name: "鈴木", Status: models.StatusCancelled},
				},
			},
		},
		Templates: []models.Template{
			{ID: "p1", Name: "ヨガ基礎", Teacher: "山田", Description: "初心者向け", Price: 3000, Capacity: capPtr(8)},
		},
		Customers: []models.Customer{
			{ID: "c1", Name: "田中花子", Phone: "090-1111-2222", VisitCount: 4},
			{ID: "c2", Name: "鈴木一郎", Phone: "080-3333-4444", VisitCount: 1},
		},
		Settings:  models.Settings{StudioName: "スタジオ虎次郎"},
		FetchedAt: time.Now(),
	}
}

func newTestService(be *mockBackend, cache *mockCache, audit *mockAudit) *AdminService {
	logger := zerolog.Nop()
	svc := NewAdminService(be, cache, audit, events.NewEventBus(), nil, &logger)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func loadSnapshot(t *testing.T, svc *AdminService, be *mockBackend, cache *mockCache) {
	t.Helper()
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil).Once()
	cache.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, svc.Reload(context.Background()))
}

func TestSnapshotBeforeLoad(t *testing.T) {
	svc := newTestService(&mockBackend{}, &mockCache{}, &mockAudit{})

	_, err := svc.Snapshot()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = svc.MonthView(2026, time.March)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestReloadServesCacheWhenBackendDown(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})

	be.On("FetchSnapshot", mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Load", mock.Anything).Return(testSnapshot(), nil)

	require.NoError(t, svc.Reload(context.Background()))

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Slots, 2)
}

func TestReloadFailsWithoutCache(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})

	be.On("FetchSnapshot", mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Load", mock.Anything).Return(nil, nil)

	assert.Error(t, svc.Reload(context.Background()))
}

func TestReloadKeepsCurrentSnapshotOnFailure(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	be.On("FetchSnapshot", mock.Anything).Return(nil, errors.New("timeout"))

	assert.Error(t, svc.Reload(context.Background()))

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Slots, 2)
}

func TestMonthView(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	grid, err := svc.MonthView(2026, time.March)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", grid.Start)

	var found int
	for _, week := range grid.Weeks {
		for _, day := range week {
			if day.Date == "2026-03-10" {
				found = len(day.Slots)
			}
		}
	}
	assert.Equal(t, 2, found)
}

func TestSlotDetail(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	view, err := svc.SlotDetail("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), view.Capacity)
	assert.Equal(t, 1, view.Tally.Reserved)
	assert.True(t, view.PriceLocked)
	assert.False(t, view.CanDelete)

	_, err = svc.SlotDetail("missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSaveSlotNew(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	be.On("Call", mock.Anything, backend.ActionSaveSlot, mock.MatchedBy(func(p map[string]any) bool {
		return p["date"] == "2026-03-20" && p["lessonName"] == "ヨガ基礎" && p["packageId"] == "p1"
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	err := svc.SaveSlot(context.Background(), models.SlotInput{
		Date:       "2026-03-20",
		StartTime:  "10:00",
		EndTime:    "11:00",
		Price:      3000,
		TemplateID: "p1",
	})
	require.NoError(t, err)
	be.AssertExpectations(t)
}

func TestSaveSlotPastDate(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	err := svc.SaveSlot(context.Background(), models.SlotInput{
		Date:      "2026-02-28",
		Name:      "ヨガ入門",
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	assert.ErrorIs(t, err, schedule.ErrPastDate)
	be.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveSlotValidation(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	err := svc.SaveSlot(context.Background(), models.SlotInput{
		Date: "2026-03-20", StartTime: "10:00", EndTime: "11:00",
	})
	assert.ErrorIs(t, err, ErrNameRequired)

	err = svc.SaveSlot(context.Background(), models.SlotInput{
		Date: "2026-03-20", Name: "ヨガ入門",
	})
	assert.ErrorIs(t, err, ErrTimeRequired)

	err = svc.SaveSlot(context.Background(), models.SlotInput{
		Name: "ヨガ入門", StartTime: "10:00", EndTime: "11:00",
	})
	assert.ErrorIs(t, err, ErrDateRequired)
}

func TestSaveSlotPriceLocked(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	// s1 has an active reservation; changing its price must be refused.
	err := svc.SaveSlot(context.Background(), models.SlotInput{
		SlotID: "s1", Price: 4000, StartTime: "10:00", EndTime: "11:00",
	})
	assert.ErrorIs(t, err, schedule.ErrHasReservations)
	be.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveSlotEditKeepsIdentity(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	be.On("Call", mock.Anything, backend.ActionSaveSlot, mock.MatchedBy(func(p map[string]any) bool {
		return p["slotId"] == "s1" && p["date"] == "2026-03-10" && p["price"] == int64(3000)
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	// Same price, new times: allowed even with an active reservation.
	err := svc.SaveSlot(context.Background(), models.SlotInput{
		SlotID: "s1", Price: 3000, StartTime: "10:30", EndTime: "11:30",
	})
	require.NoError(t, err)
	be.AssertExpectations(t)
}

func TestDeleteSlot(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	// s1 has an active reservation.
	err := svc.DeleteSlot(context.Background(), "s1")
	assert.ErrorIs(t, err, schedule.ErrHasReservations)

	// s2 has only a cancelled guest.
	be.On("Call", mock.Anything, backend.ActionSaveSlot, mock.MatchedBy(func(p map[string]any) bool {
		return p["slotId"] == "s2" && p["status"] == models.StatusDeleted
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteSlot(context.Background(), "s2"))
	be.AssertExpectations(t)

	err = svc.DeleteSlot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSaveTemplate(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	err := svc.SaveTemplate(context.Background(), models.TemplateInput{})
	assert.ErrorIs(t, err, ErrNameRequired)

	be.On("Call", mock.Anything, backend.ActionSaveTemplate, mock.MatchedBy(func(p map[string]any) bool {
		return p["lessonName"] == "朝ヨガ" && p["capacity"] == int64(10)
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	err = svc.SaveTemplate(context.Background(), models.TemplateInput{
		Name: "朝ヨガ", Capacity: capPtr(10),
	})
	require.NoError(t, err)
	be.AssertExpectations(t)
}

func TestDeleteTemplate(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	err := svc.DeleteTemplate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	be.On("Call", mock.Anything, backend.ActionSaveTemplate, mock.MatchedBy(func(p map[string]any) bool {
		return p["packageId"] == "p1" && p["status"] == models.StatusDeleted
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteTemplate(context.Background(), "p1"))
	be.AssertExpectations(t)
}

func TestForceCancel(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	be.On("Call", mock.Anything, backend.ActionForceCancel, mock.MatchedBy(func(p map[string]any) bool {
		return p["reservationId"] == "r1"
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Action == events.EventReservationForceCancel && e.TargetID == "r1" && e.Actor == "front-desk"
	})).Return(nil).Once()
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	ctx := WithActor(context.Background(), "front-desk")
	require.NoError(t, svc.ForceCancel(ctx, "r1"))
	be.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestSaveSettings(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	audit := &mockAudit{}
	svc := newTestService(be, cache, audit)
	loadSnapshot(t, svc, be, cache)

	be.On("Call", mock.Anything, backend.ActionSaveSettings, mock.MatchedBy(func(p map[string]any) bool {
		return p["studioName"] == "新店名"
	})).Return(map[string]any{}, nil).Once()
	audit.On("InsertAudit", mock.Anything, mock.Anything).Return(nil)
	be.On("FetchSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.SaveSettings(context.Background(), models.Settings{StudioName: "新店名"}))
	be.AssertExpectations(t)
}

func TestCustomers(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	all, err := svc.Customers("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byName, err := svc.Customers("田中")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "c1", byName[0].ID)

	byPhone, err := svc.Customers("080-3333")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "c2", byPhone[0].ID)

	none, err := svc.Customers("存在しない")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCustomerDetail(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	c, err := svc.CustomerDetail("c1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.VisitCount)

	_, err = svc.CustomerDetail("nope")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerHistory(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	history, err := svc.CustomerHistory("tanaka@example.com")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ヨガ入門", history[0].Lesson)

	history, err = svc.CustomerHistory("")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBackendFailurePropagates(t *testing.T) {
	be := &mockBackend{}
	cache := &mockCache{}
	svc := newTestService(be, cache, &mockAudit{})
	loadSnapshot(t, svc, be, cache)

	be.On("Call", mock.Anything, backend.ActionForceCancel, mock.Anything).
		Return(nil, &backend.BackendError{Action: backend.ActionForceCancel, Message: "not found"})

	err := svc.ForceCancel(context.Background(), "r404")
	var bErr *backend.BackendError
	assert.ErrorAs(t, err, &bErr)
}

func TestAuditForTarget(t *testing.T) {
	audit := &mockAudit{}
	svc := newTestService(&mockBackend{}, &mockCache{}, audit)

	audit.On("AuditByTarget", mock.Anything, "s1").Return([]*models.AuditEntry{
		{ID: 3, Action: "slot_deleted", TargetID: "s1"},
		{ID: 1, Action: "slot_saved", TargetID: "s1"},
	}, nil)

	entries, err := svc.AuditForTarget(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "slot_deleted", entries[0].Action)
	audit.AssertExpectations(t)
}
