// Package refresher extends the TTL of hot, refresh-eligible ranking keys so
// frequently-read keys do not expire into a cache stampede.
package refresher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/sampler"
	"github.com/goboard/hotrank/internal/stats"
	"github.com/goboard/hotrank/internal/tier"
)

// TTLStore is the store-side TTL extension the refresher needs.
type TTLStore interface {
	RefreshTTL(ctx context.Context, key string, ttl time.Duration) error
}

// Refresher drains the access sampler and refreshes eligible hot keys back to
// their original TTL. The interval trigger is external; Run is a convenience
// loop for deployments without their own scheduler.
type Refresher struct {
	sampler  *sampler.Sampler
	registry *tier.PolicyRegistry
	store    TTLStore
	// threshold is compared against sampled counts, which approximate true
	// traffic times the sampling rate.
	threshold uint64
	interval  time.Duration
	logger    *zap.Logger
	stats     stats.Collector
}

func New(smp *sampler.Sampler, registry *tier.PolicyRegistry, store TTLStore, threshold uint64, interval time.Duration, logger *zap.Logger, collector stats.Collector) *Refresher {
	return &Refresher{
		sampler:   smp,
		registry:  registry,
		store:     store,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
		stats:     collector,
	}
}

// DrainAccessCounts atomically swaps out and returns the sampled access
// counts since the last drain.
func (r *Refresher) DrainAccessCounts() map[string]uint64 {
	counts := r.sampler.SwapAndGet()
	r.stats.SetGauge(stats.MetricSamplerDrainedKeys, int64(len(counts)))
	return counts
}

// RefreshTTLIfEligible extends key's TTL back to its original duration if the
// registry allows it. Ineligible and unregistered keys return (false, nil);
// "not configured for refresh" is a normal state for most keys.
func (r *Refresher) RefreshTTLIfEligible(ctx context.Context, key string) (bool, error) {
	if !r.registry.IsRefreshable(key) {
		return false, nil
	}
	ttl, ok := r.registry.OriginalTTL(key)
	if !ok {
		return false, nil
	}

	if err := r.store.RefreshTTL(ctx, key, ttl); err != nil {
		return false, err
	}
	r.stats.IncCounter(stats.MetricTTLRefreshes, 1)
	return true, nil
}

// ForceRefresh extends key's TTL regardless of traffic, for operational use.
// Unregistered keys return ErrUnknownKeyPattern.
func (r *Refresher) ForceRefresh(ctx context.Context, key string) error {
	ttl, ok := r.registry.OriginalTTL(key)
	if !ok {
		return tier.ErrUnknownKeyPattern
	}
	if err := r.store.RefreshTTL(ctx, key, ttl); err != nil {
		return err
	}
	r.stats.IncCounter(stats.MetricTTLRefreshes, 1)
	return nil
}

// RunOnce drains the sampler and refreshes every eligible key whose sampled
// count met the threshold.
func (r *Refresher) RunOnce(ctx context.Context) {
	for key, count := range r.DrainAccessCounts() {
		if count < r.threshold {
			continue
		}
		refreshed, err := r.RefreshTTLIfEligible(ctx, key)
		if err != nil {
			r.logger.Warn("Failed to refresh hot key TTL", zap.String("key", key), zap.Error(err))
			continue
		}
		if refreshed {
			r.logger.Debug("Refreshed hot key TTL",
				zap.String("key", key), zap.Uint64("sampledCount", count))
		}
	}
}

// Run drives RunOnce on the configured interval until ctx ends.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
