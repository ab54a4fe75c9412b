// Package hotrank keeps a bulletin board's popular-content rankings fresh
// under high read concurrency while tolerating transient failures of the
// primary cache store.
//
// Four tiers are served: realtime (derived live from event-driven scores),
// weekly and legend (persisted rankings with a fixed TTL that the hot-key
// refresher may extend), and pinned (permanent membership). Realtime score
// writes that fail against the primary store are absorbed by an in-process
// fallback store and reconciled back once the primary store is healthy.
package hotrank

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/aggregator"
	"github.com/goboard/hotrank/internal/config"
	"github.com/goboard/hotrank/internal/fallback"
	"github.com/goboard/hotrank/internal/models"
	"github.com/goboard/hotrank/internal/reconciler"
	"github.com/goboard/hotrank/internal/refresher"
	"github.com/goboard/hotrank/internal/sampler"
	"github.com/goboard/hotrank/internal/stats"
	"github.com/goboard/hotrank/internal/store"
	"github.com/goboard/hotrank/internal/tier"
)

// Re-exported types so callers do not import internal packages.
type (
	// Tier is one of the four popularity classes.
	Tier = tier.Tier
	// Summary is the denormalized list-rendering entry.
	Summary = models.Summary
	// Detail is the full detail payload for one content item.
	Detail = models.Detail
	// Event is a content-interaction domain event.
	Event = aggregator.Event
	// Weights are the per-event score deltas.
	Weights = config.Weights
	// StatsCollector receives engine metrics.
	StatsCollector = stats.Collector
)

// Domain events accepted by Publish and Apply.
type (
	CommentAdded    = aggregator.CommentAdded
	CommentRemoved  = aggregator.CommentRemoved
	ReactionToggled = aggregator.ReactionToggled
	Viewed          = aggregator.Viewed
)

const (
	Realtime = tier.Realtime
	Weekly   = tier.Weekly
	Legend   = tier.Legend
	Pinned   = tier.Pinned
)

// Option configures the engine.
type Option = config.Option

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) Option { return config.WithLogger(logger) }

// WithStats sets the metrics collector.
func WithStats(collector StatsCollector) Option { return config.WithStats(collector) }

// WithSampleRate sets the read-sampling probability (default 0.10).
func WithSampleRate(rate float64) Option { return config.WithSampleRate(rate) }

// WithWeights overrides the per-event score weights.
func WithWeights(w Weights) Option { return config.WithWeights(w) }

// WithHotKeyThreshold sets the sampled-count bar for TTL refresh.
func WithHotKeyThreshold(threshold uint64) Option { return config.WithHotKeyThreshold(threshold) }

// WithLocalDetailCache toggles the in-process detail cache.
func WithLocalDetailCache(enabled bool) Option { return config.WithLocalDetailCache(enabled) }

// WithSerialization selects the payload codec ("json" or "gob").
func WithSerialization(name string) Option { return config.WithCodec(name) }

// FromFile overlays settings from a YAML file.
func FromFile(path string) Option { return config.FromFile(path) }

// Engine is the popularity ranking and tiered-cache engine.
type Engine struct {
	store      *store.Store
	sampler    *sampler.Sampler
	fallback   *fallback.Store
	registry   *tier.PolicyRegistry
	aggregator *aggregator.Aggregator
	refresher  *refresher.Refresher
	reconciler *reconciler.Reconciler
	logger     *zap.Logger
	cancel     context.CancelFunc
}

// New connects to the primary store and assembles the engine. Background
// loops (event intake, hot-key refresh, fallback reconciliation) start
// immediately and stop on Close.
func New(ctx context.Context, redisOptions *redis.Options, opts ...Option) (*Engine, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create config: %w", err)
	}

	client := redis.NewClient(redisOptions)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to primary store: %w", err)
	}

	return newEngine(ctx, client, cfg)
}

// NewWithClient assembles the engine on an externally managed client, which
// the caller keeps responsible for closing.
func NewWithClient(ctx context.Context, client redis.Cmdable, opts ...Option) (*Engine, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create config: %w", err)
	}
	return newEngine(ctx, client, cfg)
}

func newEngine(ctx context.Context, client redis.Cmdable, cfg *config.Config) (*Engine, error) {
	smp := sampler.New(cfg.SampleRate)

	st, err := store.New(ctx, client, cfg, smp)
	if err != nil {
		return nil, fmt.Errorf("create tiered store: %w", err)
	}

	fb := fallback.New(cfg.FallbackShardCount)
	registry := tier.NewPolicyRegistry(tier.Table(cfg.WeeklyTTL, cfg.LegendTTL), cfg.SummaryTTL)
	agg := aggregator.New(st, fb, cfg.Weights, cfg.EventQueueSize, cfg.Logger, cfg.Stats)
	ref := refresher.New(smp, registry, st, cfg.HotKeyThreshold, cfg.RefreshInterval, cfg.Logger, cfg.Stats)
	rec := reconciler.New(fb, st, cfg.ReconcileInterval, cfg.Logger, cfg.Stats)

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := &Engine{
		store:      st,
		sampler:    smp,
		fallback:   fb,
		registry:   registry,
		aggregator: agg,
		refresher:  ref,
		reconciler: rec,
		logger:     cfg.Logger,
		cancel:     cancel,
	}

	go agg.Run(bg)
	go ref.Run(bg)
	go rec.Run(bg)

	return e, nil
}

// GetRankedSummaries returns the tier's summaries in ranking order, windowed
// by [pageOffset, pageOffset+pageSize). IDs whose summary entry has expired
// are skipped; a read failure propagates so the caller can fall through to
// the system of record.
func (e *Engine) GetRankedSummaries(ctx context.Context, t Tier, pageOffset, pageSize int) ([]Summary, error) {
	ids, err := e.store.ReadRankedIDs(ctx, t, pageOffset, pageSize)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	byID, err := e.store.ReadSummaryList(ctx, t)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := byID[id]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}

// GetDetail returns the cached detail for id. found is false on a miss.
func (e *Engine) GetDetail(ctx context.Context, id int64) (*Detail, bool, error) {
	return e.store.ReadDetail(ctx, id)
}

// WriteRankedIDs atomically replaces the tier's ID ranking with the supplied
// order. An empty input is a silent no-op.
func (e *Engine) WriteRankedIDs(ctx context.Context, t Tier, ids []int64) error {
	return e.store.WriteRankedIDs(ctx, t, ids)
}

// WriteSummaries overwrites summary entries for the tier and resets the
// summary structure's TTL. An empty input is a silent no-op.
func (e *Engine) WriteSummaries(ctx context.Context, t Tier, summaries []Summary) error {
	return e.store.WriteSummaryList(ctx, t, summaries)
}

// WriteDetail upserts one detail entry.
func (e *Engine) WriteDetail(ctx context.Context, detail Detail) error {
	return e.store.WriteDetail(ctx, detail)
}

// InvalidateDetail drops one detail entry after the content item mutated.
func (e *Engine) InvalidateDetail(ctx context.Context, id int64) error {
	return e.store.InvalidateDetail(ctx, id)
}

// AddIDToTier adds a single member to a tier's ranking without a full
// rewrite, for manual curation such as pinning.
func (e *Engine) AddIDToTier(ctx context.Context, t Tier, id int64) error {
	return e.store.AddIDToTier(ctx, t, id)
}

// RemoveIDFromTier removes a single member from a tier's ranking.
func (e *Engine) RemoveIDFromTier(ctx context.Context, t Tier, id int64) error {
	return e.store.RemoveIDFromTier(ctx, t, id)
}

// Publish enqueues a domain event for asynchronous score aggregation. It
// never blocks the producing request; a full queue drops the event.
func (e *Engine) Publish(ev Event) {
	e.aggregator.Publish(ev)
}

// Apply processes one domain event synchronously. Prefer Publish on request
// paths.
func (e *Engine) Apply(ctx context.Context, ev Event) {
	e.aggregator.Apply(ctx, ev)
}

// DrainAccessCounts swaps out and returns the sampled access counts since
// the last drain, for externally scheduled refresh cycles.
func (e *Engine) DrainAccessCounts() map[string]uint64 {
	return e.refresher.DrainAccessCounts()
}

// RefreshTTLIfEligible extends key's TTL to its original duration when the
// policy registry allows it; ineligible and unknown keys return (false, nil).
func (e *Engine) RefreshTTLIfEligible(ctx context.Context, key string) (bool, error) {
	return e.refresher.RefreshTTLIfEligible(ctx, key)
}

// ReconcileFallback flushes pending fallback scores into the primary store,
// clearing them only on full success.
func (e *Engine) ReconcileFallback(ctx context.Context) error {
	return e.reconciler.ReconcileOnce(ctx)
}

// FallbackPending reports the number of content IDs with pending fallback
// scores, for health monitoring.
func (e *Engine) FallbackPending() int {
	return e.fallback.Size()
}

// Close stops background loops and releases in-process resources. Pending
// fallback scores are flushed on a best-effort basis first.
func (e *Engine) Close() error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.reconciler.ReconcileOnce(flushCtx); err != nil {
		e.logger.Warn("Final fallback flush failed, pending scores lost", zap.Error(err))
	}

	e.cancel()
	return e.store.Close()
}
