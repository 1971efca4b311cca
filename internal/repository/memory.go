package repository

import (
	"context"
	"sync"
	"time"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// MemorySnapshotCache keeps the last snapshot in process memory. It backs
// the failover wrapper when Redis is down or disabled.
type MemorySnapshotCache struct {
	mu      sync.RWMutex
	snap    *models.Snapshot
	savedAt time.Time
	ttl     time.Duration
}

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{ttl: ttl}
}

func (c *MemorySnapshotCache) Save(ctx context.Context, snap *models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.savedAt = time.Now()
	return nil
}

func (c *MemorySnapshotCache) Load(ctx context.Context) (*models.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, nil
	}
	if c.ttl > 0 && time.Since(c.savedAt) > c.ttl {
		return nil, nil
	}
	return c.snap, nil
}

func (c *MemorySnapshotCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
	return nil
}
