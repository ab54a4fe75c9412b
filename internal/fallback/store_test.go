package fallback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentIncrementsAreExact(t *testing.T) {
	s := New(0)

	const workers = 300
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrementScore(42, 1.0)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, s.Size())
	require.Equal(t, []int64{42}, s.TopPostIDs(0, 10))
	require.Equal(t, map[int64]float64{42: float64(workers)}, s.Snapshot())
}

func TestConcurrentIncrementsManyIDs(t *testing.T) {
	s := New(8)

	const (
		workers = 100
		ids     = 50
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := int64(0); id < ids; id++ {
				s.IncrementScore(id, 0.5)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, ids, s.Size())
	snap := s.Snapshot()
	for id := int64(0); id < ids; id++ {
		require.InDelta(t, float64(workers)*0.5, snap[id], 1e-9)
	}
}

func TestRankingOrder(t *testing.T) {
	s := New(0)
	s.IncrementScore(1, 10)
	s.IncrementScore(2, 30)
	s.IncrementScore(3, 20)
	s.IncrementScore(4, 5)
	s.IncrementScore(5, 25)

	require.Equal(t, []int64{2, 5, 3, 1, 4}, s.TopPostIDs(0, 5))
}

func TestRankingTiesBreakByInsertionOrder(t *testing.T) {
	s := New(0)
	s.IncrementScore(7, 10)
	s.IncrementScore(8, 10)
	s.IncrementScore(9, 10)

	require.Equal(t, []int64{7, 8, 9}, s.TopPostIDs(0, 10))
}

func TestRankingWindow(t *testing.T) {
	s := New(0)
	for id := int64(1); id <= 5; id++ {
		s.IncrementScore(id, float64(id))
	}

	// Descending: 5, 4, 3, 2, 1.
	require.Equal(t, []int64{4, 3}, s.TopPostIDs(1, 2))
	require.Empty(t, s.TopPostIDs(5, 2))
	require.Empty(t, s.TopPostIDs(0, 0))
	require.Empty(t, s.TopPostIDs(-1, 2))
}

func TestNonPositiveTotalsAreHiddenButKept(t *testing.T) {
	s := New(0)
	s.IncrementScore(1, 10)
	s.IncrementScore(2, -5)
	s.IncrementScore(3, 5)
	s.IncrementScore(3, -5)

	require.Equal(t, []int64{1}, s.TopPostIDs(0, 10))
	require.Equal(t, 3, s.Size(), "hidden entries still count toward size")
	require.True(t, s.HasData())

	// A later positive delta restores visibility.
	s.IncrementScore(2, 6)
	require.Equal(t, []int64{1, 2}, s.TopPostIDs(0, 10))
}

func TestReclaimRemovesFullyReplayedEntries(t *testing.T) {
	s := New(0)
	s.IncrementScore(1, 10)
	s.IncrementScore(2, -3)

	s.Reclaim(1, 10)
	s.Reclaim(2, -3)

	require.Equal(t, 0, s.Size())
	require.False(t, s.HasData())
}

func TestReclaimKeepsRemainderFromLaterIncrements(t *testing.T) {
	s := New(0)
	s.IncrementScore(1, 10)

	// An increment landing between snapshot and reclaim survives.
	s.IncrementScore(1, 2)
	s.Reclaim(1, 10)

	require.Equal(t, 1, s.Size())
	require.InDelta(t, 2.0, s.Snapshot()[1], 1e-9)
}

func TestReclaimUnknownIDIsNoop(t *testing.T) {
	s := New(0)
	s.Reclaim(99, 5)

	require.Equal(t, 0, s.Size())
	require.False(t, s.HasData())
}

func TestClearIsTotal(t *testing.T) {
	s := New(0)
	s.IncrementScore(1, 10)
	s.IncrementScore(2, -1)

	s.Clear()

	require.Equal(t, 0, s.Size())
	require.False(t, s.HasData())
	require.Empty(t, s.TopPostIDs(0, 10))
	require.Empty(t, s.Snapshot())
}
