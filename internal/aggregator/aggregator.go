// Package aggregator translates content-interaction events into realtime
// score deltas, redirecting to the fallback store when the primary store
// rejects the write.
package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/config"
	"github.com/goboard/hotrank/internal/fallback"
	"github.com/goboard/hotrank/internal/stats"
)

// ScoreWriter is the primary-store increment the aggregator targets.
type ScoreWriter interface {
	IncrementRealtimeScore(ctx context.Context, id int64, delta float64) error
}

// Aggregator applies event-typed score deltas. Accumulation is commutative,
// so no ordering beyond "eventually applied" is guaranteed or needed.
type Aggregator struct {
	primary  ScoreWriter
	fallback *fallback.Store
	weights  config.Weights
	logger   *zap.Logger
	stats    stats.Collector
	queue    chan Event
}

// New creates an Aggregator. queueSize bounds the async intake; a full queue
// drops events rather than blocking the producing request.
func New(primary ScoreWriter, fb *fallback.Store, weights config.Weights, queueSize int, logger *zap.Logger, collector stats.Collector) *Aggregator {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Aggregator{
		primary:  primary,
		fallback: fb,
		weights:  weights,
		logger:   logger,
		stats:    collector,
		queue:    make(chan Event, queueSize),
	}
}

func (a *Aggregator) weightFor(ev Event) (float64, bool) {
	switch e := ev.(type) {
	case CommentAdded:
		return a.weights.CommentAdded, true
	case CommentRemoved:
		return a.weights.CommentRemoved, true
	case ReactionToggled:
		if e.Added {
			return a.weights.ReactionAdded, true
		}
		return a.weights.ReactionRemoved, true
	case Viewed:
		return a.weights.Viewed, true
	default:
		return 0, false
	}
}

// Apply resolves the event's (id, delta) and increments the realtime score.
// On a primary-store failure the identical delta goes to the fallback store;
// a double failure is logged and not retried, bounding the loss to a single
// interaction.
func (a *Aggregator) Apply(ctx context.Context, ev Event) {
	delta, ok := a.weightFor(ev)
	if !ok {
		a.logger.Warn("Ignoring event of unknown type", zap.Any("event", ev))
		return
	}
	if delta == 0 {
		return
	}

	id := ev.ContentID()
	a.stats.IncCounter(stats.MetricEvents, 1)

	if err := a.primary.IncrementRealtimeScore(ctx, id, delta); err != nil {
		a.logger.Warn("Primary score increment failed, using fallback store",
			zap.Int64("contentId", id), zap.Float64("delta", delta), zap.Error(err))
		a.fallback.IncrementScore(id, delta)
		a.stats.IncCounter(stats.MetricFallbackIncrements, 1)
		a.stats.SetGauge(stats.MetricFallbackPending, int64(a.fallback.Size()))
	}
}

// Publish enqueues an event for asynchronous processing, never blocking the
// producing request. A full queue drops the event with a log line.
func (a *Aggregator) Publish(ev Event) {
	select {
	case a.queue <- ev:
	default:
		a.stats.IncCounter(stats.MetricEventsDropped, 1)
		a.logger.Warn("Event queue full, dropping event", zap.Int64("contentId", ev.ContentID()))
	}
}

// Run drains the queue until ctx ends, then applies whatever is still
// buffered before returning.
func (a *Aggregator) Run(ctx context.Context) {
	for {
		select {
		case ev := <-a.queue:
			a.Apply(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-a.queue:
					a.Apply(context.WithoutCancel(ctx), ev)
				default:
					return
				}
			}
		}
	}
}
