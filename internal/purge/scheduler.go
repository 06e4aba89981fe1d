// Package purge periodically removes stale posts from the graph.
package purge

import (
	"context"
	"log/slog"
	"time"
)

// interval matches the reference design's 45-minute purge cadence
// (original_source's kickoff_purge), independent of the configurable
// retention horizon.
const interval = 45 * time.Minute

// Purger removes posts older than a horizon from the graph.
type Purger interface {
	PurgeOlderThan(ctx context.Context, horizon time.Duration) (int64, error)
}

// Scheduler ticks every interval and asks mutator to purge posts older
// than horizon.
type Scheduler struct {
	mutator Purger
	horizon time.Duration
	logger  *slog.Logger
}

// NewScheduler builds a Scheduler. horizon is the configured retention
// window; posts whose created_at predates now-horizon are deleted on
// every tick.
func NewScheduler(mutator Purger, horizon time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{mutator: mutator, horizon: horizon, logger: logger}
}

// Run ticks until ctx is cancelled, logging the number of posts removed
// on every pass.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	removed, err := s.mutator.PurgeOlderThan(ctx, s.horizon)
	if err != nil {
		s.logger.Error("purge failed", "error", err)
		return
	}
	s.logger.Info("purge complete", "removed", removed, "horizon", s.horizon)
}
