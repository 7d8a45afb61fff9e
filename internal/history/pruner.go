package history

// pruner.go runs the background job that keeps the history log bounded.
// It purges once on start and then every Interval until its context ends.
// A failed purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes old entries.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// PruneConfig controls the pruning job.
type PruneConfig struct {
	Retention time.Duration // Entries older than this are deleted (default: 30 days)
	Interval  time.Duration // How often to run (default: 1h)
}

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

// StartPruner purges entries older than the retention period until ctx is
// cancelled. It blocks; run it in its own goroutine.
func StartPruner(ctx context.Context, p Purger, cfg PruneConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history pruner started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	prune(ctx, p, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case <-ticker.C:
			prune(ctx, p, cfg.Retention)
		}
	}
}

func prune(ctx context.Context, p Purger, retention time.Duration) {
	start := time.Now()
	purged, err := p.PurgeOlderThan(ctx, retention)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Debug("history purged",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
