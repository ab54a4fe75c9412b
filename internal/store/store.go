// Package store persists and serves the four-tier ranking data against the
// primary cache store, with tier-specific structure shapes and TTLs.
//
// Semantics follow cache-aside: reads that fail surface a typed error the
// caller treats as a miss; the engine never returns fabricated data. Every
// read samples its key's access so the hot-key refresher can extend TTLs of
// frequently-read ranking keys before they expire.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goboard/hotrank/internal/config"
	"github.com/goboard/hotrank/internal/models"
	"github.com/goboard/hotrank/internal/retrier"
	"github.com/goboard/hotrank/internal/sampler"
	"github.com/goboard/hotrank/internal/stats"
	"github.com/goboard/hotrank/internal/tier"
	"github.com/goboard/hotrank/pkg/serialization"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Store is the tiered cache store over the primary store.
type Store struct {
	client  redis.Cmdable
	breaker *gobreaker.CircuitBreaker
	retrier *retrier.Retrier
	sampler *sampler.Sampler
	codec   serialization.Codec
	logger  *zap.Logger
	stats   stats.Collector
	tracer  oteltrace.Tracer
	sf      singleflight.Group

	tiers      map[tier.Tier]tier.Policy
	summaryTTL time.Duration
	detailTTL  time.Duration
	opTimeout  time.Duration

	local  *localCache   // nil when disabled
	filter *detailFilter // bloom gate for detail reads
}

// New creates a Store bound to the given primary-store client.
func New(ctx context.Context, client redis.Cmdable, cfg *config.Config, smp *sampler.Sampler) (*Store, error) {
	r, err := retrier.New(
		cfg.Resilience.MaxRetries,
		cfg.Resilience.BaseDelay,
		cfg.Resilience.MaxDelay,
		cfg.Resilience.RetryJitter,
	)
	if err != nil {
		return nil, fmt.Errorf("create retrier: %w", err)
	}

	s := &Store{
		client:     client,
		breaker:    gobreaker.NewCircuitBreaker(cfg.Resilience.Breaker),
		retrier:    r,
		sampler:    smp,
		codec:      cfg.Codec,
		logger:     cfg.Logger,
		stats:      cfg.Stats,
		tracer:     otel.Tracer("hotrank/store"),
		tiers:      tier.Table(cfg.WeeklyTTL, cfg.LegendTTL),
		summaryTTL: cfg.SummaryTTL,
		detailTTL:  cfg.DetailTTL,
		opTimeout:  cfg.Resilience.OpTimeout,
		filter:     newDetailFilter(cfg.Bloom),
	}

	if cfg.EnableLocalDetailCache {
		lc, err := newLocalCache(cfg.MaxLocalBytes, cfg.DetailTTL, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("create local detail cache: %w", err)
		}
		s.local = lc
	}

	s.filter.load(ctx, s)
	return s, nil
}

// Policy returns the policy for a tier; ok is false for unknown tiers.
func (s *Store) Policy(t tier.Tier) (tier.Policy, bool) {
	pol, ok := s.tiers[t]
	return pol, ok
}

// WriteRankedIDs atomically replaces the tier's ID ranking: existing entries
// are deleted before the new ones are inserted so no stale tail survives.
// Sorted tiers get ascending rank scores (1.0, 2.0, ...) preserving input
// order; pinned is membership only. An empty input is a silent no-op so an
// empty recompute never destroys good data.
func (s *Store) WriteRankedIDs(ctx context.Context, t tier.Tier, ids []int64) error {
	pol, ok := s.tiers[t]
	if !ok || pol.Kind == tier.KindNone {
		return fmt.Errorf("%w: no persisted ranking for tier %s", ErrInvalidTierOperation, t)
	}
	if len(ids) == 0 {
		return nil
	}

	key := tier.RankKey(t)
	err := s.do(ctx, "write_ranked_ids", func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, key)
		switch pol.Kind {
		case tier.KindSortedSet:
			members := make([]redis.Z, len(ids))
			for i, id := range ids {
				members[i] = redis.Z{Score: float64(i + 1), Member: member(id)}
			}
			pipe.ZAdd(ctx, key, members...)
		case tier.KindSet:
			members := make([]any, len(ids))
			for i, id := range ids {
				members[i] = member(id)
			}
			pipe.SAdd(ctx, key, members...)
		}
		if pol.TTL > 0 {
			pipe.Expire(ctx, key, pol.TTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: ranked ids %s: %w", ErrCacheWriteFailed, key, err)
	}

	s.stats.IncCounter(stats.MetricWrites, 1)
	return nil
}

// WriteSummaryList overwrites the provided entries in the tier's summary hash
// and resets the whole structure's short TTL. Empty input is a silent no-op
// for the same reason as WriteRankedIDs.
func (s *Store) WriteSummaryList(ctx context.Context, t tier.Tier, summaries []models.Summary) error {
	if _, ok := s.tiers[t]; !ok {
		return fmt.Errorf("%w: unknown tier %s", ErrInvalidTierOperation, t)
	}
	if len(summaries) == 0 {
		return nil
	}

	fields := make([]any, 0, len(summaries)*2)
	for _, sum := range summaries {
		data, err := s.codec.Marshal(sum)
		if err != nil {
			return fmt.Errorf("encode summary %d: %w", sum.ID, err)
		}
		fields = append(fields, member(sum.ID), data)
	}

	key := tier.SummaryKey(t)
	err := s.do(ctx, "write_summary_list", func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.HSet(ctx, key, fields...)
		pipe.Expire(ctx, key, s.summaryTTL)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: summary list %s: %w", ErrCacheWriteFailed, key, err)
	}

	s.stats.IncCounter(stats.MetricWrites, 1)
	return nil
}

// WriteDetail upserts a single detail entry with its own TTL, independent of
// any tier TTL.
func (s *Store) WriteDetail(ctx context.Context, detail models.Detail) error {
	data, err := s.codec.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode detail %d: %w", detail.ID, err)
	}

	key := tier.DetailKey(detail.ID)
	err = s.do(ctx, "write_detail", func(ctx context.Context) error {
		return s.client.Set(ctx, key, data, s.detailTTL).Err()
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: detail %s: %w", ErrCacheWriteFailed, key, err)
	}

	if s.local != nil {
		s.local.set(key, &detail)
	}
	s.filter.add(key)
	go s.filter.save(context.WithoutCancel(ctx), s)

	s.stats.IncCounter(stats.MetricWrites, 1)
	return nil
}

// InvalidateDetail drops a single detail entry after the content item mutated.
func (s *Store) InvalidateDetail(ctx context.Context, id int64) error {
	key := tier.DetailKey(id)
	if s.local != nil {
		s.local.del(key)
	}
	if err := s.do(ctx, "invalidate_detail", func(ctx context.Context) error {
		return s.client.Del(ctx, key).Err()
	}); err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: invalidate %s: %w", ErrCacheWriteFailed, key, err)
	}
	return nil
}

// AddIDToTier adds a single member to the tier's ranking without a full
// rewrite, for manual curation such as pinning. Sorted tiers append after the
// current tail.
func (s *Store) AddIDToTier(ctx context.Context, t tier.Tier, id int64) error {
	pol, ok := s.tiers[t]
	if !ok || pol.Kind == tier.KindNone {
		return fmt.Errorf("%w: no persisted ranking for tier %s", ErrInvalidTierOperation, t)
	}

	key := tier.RankKey(t)
	err := s.do(ctx, "add_id_to_tier", func(ctx context.Context) error {
		switch pol.Kind {
		case tier.KindSet:
			return s.client.SAdd(ctx, key, member(id)).Err()
		default:
			n, err := s.client.ZCard(ctx, key).Result()
			if err != nil {
				return err
			}
			return s.client.ZAdd(ctx, key, redis.Z{Score: float64(n + 1), Member: member(id)}).Err()
		}
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: add member %s: %w", ErrCacheWriteFailed, key, err)
	}
	return nil
}

// RemoveIDFromTier removes a single member from the tier's ranking.
func (s *Store) RemoveIDFromTier(ctx context.Context, t tier.Tier, id int64) error {
	pol, ok := s.tiers[t]
	if !ok || pol.Kind == tier.KindNone {
		return fmt.Errorf("%w: no persisted ranking for tier %s", ErrInvalidTierOperation, t)
	}

	key := tier.RankKey(t)
	err := s.do(ctx, "remove_id_from_tier", func(ctx context.Context) error {
		if pol.Kind == tier.KindSet {
			return s.client.SRem(ctx, key, member(id)).Err()
		}
		return s.client.ZRem(ctx, key, member(id)).Err()
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: remove member %s: %w", ErrCacheWriteFailed, key, err)
	}
	return nil
}

// IncrementRealtimeScore atomically adds delta to the content's live realtime
// score. This is the primary path of the score aggregator; a failure here is
// what triggers the fallback store.
func (s *Store) IncrementRealtimeScore(ctx context.Context, id int64, delta float64) error {
	err := s.do(ctx, "increment_realtime_score", func(ctx context.Context) error {
		return s.client.ZIncrBy(ctx, tier.RealtimeScoreKey, delta, member(id)).Err()
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: realtime score %d: %w", ErrCacheWriteFailed, id, err)
	}
	return nil
}

// ReadRankedIDs returns the tier's ranked IDs windowed by [offset,
// offset+limit). Realtime ranks live from the score structure; pinned
// membership is returned newest-ID-first since it carries no rank.
func (s *Store) ReadRankedIDs(ctx context.Context, t tier.Tier, offset, limit int) ([]int64, error) {
	pol, ok := s.tiers[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tier %s", ErrInvalidTierOperation, t)
	}
	if limit <= 0 {
		return nil, nil
	}

	key := tier.RankKey(t)
	if pol.Kind == tier.KindNone {
		key = tier.RealtimeScoreKey
	}
	s.sampler.Record(key)

	var raw []string
	err := s.do(ctx, "read_ranked_ids", func(ctx context.Context) error {
		var err error
		switch pol.Kind {
		case tier.KindSet:
			raw, err = s.client.SMembers(ctx, key).Result()
		case tier.KindNone:
			// Live scores: higher score means higher rank.
			raw, err = s.client.ZRevRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
		default:
			// Rank-list tiers store the position as the score (1.0 is the
			// top), so ascending score order IS the supplied ranking.
			raw, err = s.client.ZRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
		}
		return err
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricReadFailures, 1)
		return nil, fmt.Errorf("%w: ranked ids %s: %w", ErrCacheReadFailed, key, err)
	}
	s.stats.IncCounter(stats.MetricReads, 1)

	ids, err := parseMembers(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: ranked ids %s: %w", ErrCacheReadFailed, key, err)
	}

	if pol.Kind == tier.KindSet {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
		if offset >= len(ids) {
			return nil, nil
		}
		end := offset + limit
		if end > len(ids) {
			end = len(ids)
		}
		ids = ids[offset:end]
	}
	return ids, nil
}

// ReadSummaryList returns the tier's summary entries keyed by content ID.
// A missing or expired hash is an empty result, not an error.
func (s *Store) ReadSummaryList(ctx context.Context, t tier.Tier) (map[int64]models.Summary, error) {
	if _, ok := s.tiers[t]; !ok {
		return nil, fmt.Errorf("%w: unknown tier %s", ErrInvalidTierOperation, t)
	}

	key := tier.SummaryKey(t)
	s.sampler.Record(key)

	var raw map[string]string
	err := s.do(ctx, "read_summary_list", func(ctx context.Context) error {
		var err error
		raw, err = s.client.HGetAll(ctx, key).Result()
		return err
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricReadFailures, 1)
		return nil, fmt.Errorf("%w: summary list %s: %w", ErrCacheReadFailed, key, err)
	}
	s.stats.IncCounter(stats.MetricReads, 1)

	out := make(map[int64]models.Summary, len(raw))
	for field, data := range raw {
		var sum models.Summary
		if err := s.codec.Unmarshal([]byte(data), &sum); err != nil {
			s.logger.Warn("Skipping undecodable summary entry",
				zap.String("key", key), zap.String("field", field), zap.Error(err))
			continue
		}
		out[sum.ID] = sum
	}
	return out, nil
}

// ReadDetail returns the detail entry for id. found is false on a miss;
// a primary-store failure surfaces ErrCacheReadFailed so the caller can fall
// through to the system of record.
func (s *Store) ReadDetail(ctx context.Context, id int64) (*models.Detail, bool, error) {
	key := tier.DetailKey(id)
	s.sampler.Record(key)

	if s.local != nil {
		if d, ok := s.local.get(key); ok {
			s.stats.IncCounter(stats.MetricReads, 1)
			return d, true, nil
		}
	}

	if !s.filter.test(key) {
		// Definite miss; skip the primary-store round trip.
		s.stats.IncCounter(stats.MetricReads, 1)
		return nil, false, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		var data []byte
		err := s.do(ctx, "read_detail", func(ctx context.Context) error {
			var err error
			data, err = s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				// A miss is a normal outcome; keep it away from the
				// retrier and the breaker's failure counts.
				data = nil
				return nil
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, nil
		}

		var detail models.Detail
		if err := s.codec.Unmarshal(data, &detail); err != nil {
			return nil, err
		}
		return &detail, nil
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricReadFailures, 1)
		return nil, false, fmt.Errorf("%w: detail %s: %w", ErrCacheReadFailed, key, err)
	}
	s.stats.IncCounter(stats.MetricReads, 1)

	if v == nil {
		return nil, false, nil
	}

	detail := v.(*models.Detail)
	if s.local != nil {
		s.local.set(key, detail)
	}
	return detail, true, nil
}

// RefreshTTL extends key's TTL to ttl. Used by the hot-key refresher only;
// eligibility is the refresher's concern.
func (s *Store) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	err := s.do(ctx, "refresh_ttl", func(ctx context.Context) error {
		return s.client.Expire(ctx, key, ttl).Err()
	})
	if err != nil {
		s.stats.IncCounter(stats.MetricWriteFailures, 1)
		return fmt.Errorf("%w: refresh ttl %s: %w", ErrCacheWriteFailed, key, err)
	}
	return nil
}

// Close releases in-process resources. The primary-store client is owned by
// the caller.
func (s *Store) Close() error {
	if s.local != nil {
		s.local.close()
	}
	return nil
}

func member(id int64) string { return strconv.FormatInt(id, 10) }

func parseMembers(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
