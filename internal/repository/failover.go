package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/studio-torajirou/kanrigamen/internal/domain"
	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// FailoverSnapshotCache prefers the primary (Redis) cache and degrades to
// the in-memory fallback when it fails, probing the primary again after a
// minute.
type FailoverSnapshotCache struct {
	primary   domain.SnapshotCache
	fallback  domain.SnapshotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSnapshotCache(primary, fallback domain.SnapshotCache, logger *zerolog.Logger) *FailoverSnapshotCache {
	return &FailoverSnapshotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverSnapshotCache) Save(ctx context.Context, snap *models.Snapshot) error {
	// The fallback always gets the snapshot so a later primary outage
	// still has something to serve.
	_ = c.fallback.Save(ctx, snap)

	if c.primaryUsable(ctx) {
		if err := c.primary.Save(ctx, snap); err != nil {
			c.markDown(err)
		}
	}
	return nil
}

func (c *FailoverSnapshotCache) Load(ctx context.Context) (*models.Snapshot, error) {
	if c.primaryUsable(ctx) {
		snap, err := c.primary.Load(ctx)
		if err == nil {
			if snap != nil {
				return snap, nil
			}
		} else {
			c.markDown(err)
		}
	}
	return c.fallback.Load(ctx)
}

func (c *FailoverSnapshotCache) Clear(ctx context.Context) error {
	_ = c.fallback.Clear(ctx)
	if c.primaryUsable(ctx) {
		if err := c.primary.Clear(ctx); err != nil {
			c.markDown(err)
		}
	}
	return nil
}

func (c *FailoverSnapshotCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverSnapshotCache) primaryUsable(ctx context.Context) bool {
	if !c.isDown.Load() {
		return true
	}
	// Retry the primary after a minute.
	if time.Since(time.Unix(0, c.lastCheck.Load())) > time.Minute {
		c.isDown.Store(false)
		return true
	}
	return false
}
