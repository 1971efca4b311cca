package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-torajirou/kanrigamen/internal/config"
	"github.com/studio-torajirou/kanrigamen/internal/models"
)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Slots:     []models.Slot{{ID: "S1", Date: "2024-02-14", Name: "朝ヨガ"}},
		Templates: []models.Template{{ID: "T1", Name: "Beginner"}},
		FetchedAt: time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemorySnapshotCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemorySnapshotCache(time.Hour)

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "empty cache loads nil")

	require.NoError(t, cache.Save(ctx, testSnapshot()))
	snap, err = cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "S1", snap.Slots[0].ID)

	require.NoError(t, cache.Clear(ctx))
	snap, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisSnapshotCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	cache := NewRedisSnapshotCache(client, time.Hour)

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, cache.Save(ctx, testSnapshot()))

	snap, err = cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "朝ヨガ", snap.Slots[0].Name)
	assert.Equal(t, "T1", snap.Templates[0].ID)

	require.NoError(t, cache.Clear(ctx))
	snap, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisSnapshotCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	cache := NewRedisSnapshotCache(client, time.Minute)

	require.NoError(t, cache.Save(ctx, testSnapshot()))
	mr.FastForward(2 * time.Minute)

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "expired snapshot loads nil")
}

type failingCache struct{ err error }

func (f *failingCache) Save(ctx context.Context, snap *models.Snapshot) error { return f.err }
func (f *failingCache) Load(ctx context.Context) (*models.Snapshot, error)    { return nil, f.err }
func (f *failingCache) Clear(ctx context.Context) error                       { return f.err }

func TestFailoverSnapshotCache(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	primary := &failingCache{err: errors.New("redis down")}
	fallback := NewMemorySnapshotCache(0)
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)

	// Save succeeds despite the dead primary.
	require.NoError(t, cache.Save(ctx, testSnapshot()))

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap, "fallback serves the snapshot")
	assert.Equal(t, "S1", snap.Slots[0].ID)
}

func TestFailoverPrefersPrimary(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	mr := miniredis.RunT(t)
	primary := NewRedisSnapshotCache(NewRedisClient(config.RedisConfig{Address: mr.Addr()}), time.Hour)
	fallback := NewMemorySnapshotCache(0)
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)

	require.NoError(t, cache.Save(ctx, testSnapshot()))

	// Wipe the fallback; the primary must still answer.
	require.NoError(t, fallback.Clear(ctx))
	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
}
