package store

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/config"
	"github.com/goboard/hotrank/internal/retrier"
	"github.com/goboard/hotrank/internal/sampler"
	"github.com/goboard/hotrank/internal/stats"
	"github.com/goboard/hotrank/internal/tier"
	"github.com/goboard/hotrank/pkg/serialization"
)

// newBareStore builds a Store with a nil primary-store client. Any operation
// that reaches the client panics, so these tests prove guard paths return
// before touching the primary store.
func newBareStore(t *testing.T) *Store {
	t.Helper()

	r, err := retrier.New(1, time.Millisecond, time.Millisecond, 0)
	require.NoError(t, err)

	return &Store{
		client:     nil,
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		retrier:    r,
		sampler:    sampler.New(1.0),
		codec:      serialization.JSON{},
		logger:     zap.NewNop(),
		stats:      stats.Noop{},
		tracer:     otel.Tracer("test"),
		tiers:      tier.Table(24*time.Hour, 24*time.Hour),
		summaryTTL: 5 * time.Minute,
		detailTTL:  10 * time.Minute,
		opTimeout:  time.Second,
		filter: newDetailFilter(config.BloomConfig{
			ExpectedItems:     100,
			FalsePositiveRate: 0.01,
			RedisKey:          "bloom:detail",
		}),
	}
}

func TestEmptyWritesAreSilentNoops(t *testing.T) {
	s := newBareStore(t)
	ctx := context.Background()

	// An empty recompute must never clear existing data; reaching the nil
	// client would panic.
	require.NoError(t, s.WriteRankedIDs(ctx, tier.Weekly, nil))
	require.NoError(t, s.WriteRankedIDs(ctx, tier.Pinned, []int64{}))
	require.NoError(t, s.WriteSummaryList(ctx, tier.Legend, nil))
}

func TestWriteRankedIDsRejectsRealtime(t *testing.T) {
	s := newBareStore(t)

	err := s.WriteRankedIDs(context.Background(), tier.Realtime, []int64{1, 2})
	require.ErrorIs(t, err, ErrInvalidTierOperation)
}

func TestMembershipOpsRejectRealtimeAndUnknownTiers(t *testing.T) {
	s := newBareStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.AddIDToTier(ctx, tier.Realtime, 1), ErrInvalidTierOperation)
	require.ErrorIs(t, s.RemoveIDFromTier(ctx, tier.Realtime, 1), ErrInvalidTierOperation)
	require.ErrorIs(t, s.AddIDToTier(ctx, tier.Tier(99), 1), ErrInvalidTierOperation)
	require.ErrorIs(t, s.WriteSummaryList(ctx, tier.Tier(99), nil), ErrInvalidTierOperation)

	_, err := s.ReadRankedIDs(ctx, tier.Tier(99), 0, 10)
	require.ErrorIs(t, err, ErrInvalidTierOperation)
	_, err = s.ReadSummaryList(ctx, tier.Tier(99))
	require.ErrorIs(t, err, ErrInvalidTierOperation)
}

func TestReadRankedIDsNonPositiveLimit(t *testing.T) {
	s := newBareStore(t)

	ids, err := s.ReadRankedIDs(context.Background(), tier.Weekly, 0, 0)
	require.NoError(t, err)
	require.Nil(t, ids)
}

func TestParseMembers(t *testing.T) {
	ids, err := parseMembers([]string{"1", "42", "-7"})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 42, -7}, ids)

	_, err = parseMembers([]string{"1", "abc"})
	require.Error(t, err)
}

func TestDetailFilter(t *testing.T) {
	f := newDetailFilter(config.BloomConfig{ExpectedItems: 100, FalsePositiveRate: 0.01})

	// Unseeded: everything passes through, since the filter knows nothing
	// about keys written by earlier processes.
	require.True(t, f.test("detail:1"))

	f.add("detail:1")
	require.True(t, f.test("detail:1"))
	require.False(t, f.test("detail:999"), "seeded filter should reject an unseen key")
}
