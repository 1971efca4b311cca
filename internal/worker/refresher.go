package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/studio-torajirou/kanrigamen/internal/metrics"
	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// Reloader is the slice of the admin service the refresher drives.
type Reloader interface {
	Reload(ctx context.Context) error
	Snapshot() (*models.Snapshot, error)
}

// SnapshotRefresher re-fetches the backend snapshot on a fixed interval
// so staff always look at fresh reservation state without manual
// reloads. Consecutive failures back off before the next attempt.
type SnapshotRefresher struct {
	service  Reloader
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger

	failures int
}

func NewSnapshotRefresher(service Reloader, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *SnapshotRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	return &SnapshotRefresher{
		service:  service,
		interval: interval,
		retry:    retry,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *SnapshotRefresher) Run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("snapshot refresher started")

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("snapshot refresher stopped")
			return
		case <-timer.C:
			timer.Reset(r.tick(ctx))
		}
	}
}

// tick runs one refresh and returns the wait before the next one.
func (r *SnapshotRefresher) tick(ctx context.Context) time.Duration {
	defer r.observeAge()

	if err := r.service.Reload(ctx); err != nil {
		r.failures++
		delay := r.retry.NextDelay(r.failures)
		if delay > r.interval {
			delay = r.interval
		}
		r.logger.Warn().Err(err).Int("failures", r.failures).Dur("next_attempt", delay).
			Msg("snapshot refresh failed")
		return delay
	}

	if r.failures > 0 {
		r.logger.Info().Int("failures", r.failures).Msg("snapshot refresh recovered")
	}
	r.failures = 0
	return r.interval
}

// observeAge keeps the staleness gauge moving between reloads, so a
// failing backend shows up as a growing age rather than a frozen zero.
func (r *SnapshotRefresher) observeAge() {
	snap, err := r.service.Snapshot()
	if err != nil || snap == nil {
		return
	}
	metrics.SetSnapshotAge(time.Since(snap.FetchedAt))
}
