// Package reconciler flushes fallback-store score deltas back into the
// primary store once it is healthy again.
//
// Reconciliation is additive: each pending delta replays as an increment on
// the realtime structure and is then reclaimed from the fallback store.
// Deltas that arrive after the snapshot survive as a remainder for the next
// cycle, and a partial failure keeps exactly the deltas that did not replay,
// so nothing is lost and nothing is applied twice.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/aggregator"
	"github.com/goboard/hotrank/internal/fallback"
	"github.com/goboard/hotrank/internal/stats"
)

// Reconciler periodically drains the fallback store into the primary store.
type Reconciler struct {
	fallback *fallback.Store
	primary  aggregator.ScoreWriter
	interval time.Duration
	logger   *zap.Logger
	stats    stats.Collector
}

func New(fb *fallback.Store, primary aggregator.ScoreWriter, interval time.Duration, logger *zap.Logger, collector stats.Collector) *Reconciler {
	return &Reconciler{
		fallback: fb,
		primary:  primary,
		interval: interval,
		logger:   logger,
		stats:    collector,
	}
}

// ReconcileOnce replays the pending deltas into the primary store,
// reclaiming each delta from the fallback store as soon as it applied.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	if !r.fallback.HasData() {
		return nil
	}

	snapshot := r.fallback.Snapshot()
	for id, delta := range snapshot {
		if delta != 0 {
			if err := r.primary.IncrementRealtimeScore(ctx, id, delta); err != nil {
				r.stats.IncCounter(stats.MetricReconcileFailures, 1)
				r.stats.SetGauge(stats.MetricFallbackPending, int64(r.fallback.Size()))
				return fmt.Errorf("reconcile score for %d: %w", id, err)
			}
		}
		// Reclaiming exactly the replayed amount means an increment that
		// landed after the snapshot survives as a remainder, and a delta
		// that replayed is never applied twice by a later cycle.
		r.fallback.Reclaim(id, delta)
	}

	r.stats.IncCounter(stats.MetricReconcileFlushes, 1)
	r.stats.SetGauge(stats.MetricFallbackPending, int64(r.fallback.Size()))
	r.logger.Info("Reconciled fallback scores into primary store",
		zap.Int("entries", len(snapshot)))
	return nil
}

// Run drives ReconcileOnce on the configured interval until ctx ends.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Warn("Reconciliation cycle failed, keeping pending scores", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
