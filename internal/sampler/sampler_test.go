package sampler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplingLinearity(t *testing.T) {
	s := New(0.10)

	const n = 10000
	for i := 0; i < n; i++ {
		s.Record("rank:weekly")
	}

	counts := s.SwapAndGet()
	got := counts["rank:weekly"]

	// Expected n*p = 1000; a generous statistical band, not exact equality.
	require.GreaterOrEqual(t, got, uint64(500), "sampled count far below n*p")
	require.LessOrEqual(t, got, uint64(1500), "sampled count far above n*p")
}

func TestSwapIsolation(t *testing.T) {
	s := New(1.0)
	s.Record("summary:weekly")

	first := s.SwapAndGet()
	require.Equal(t, uint64(1), first["summary:weekly"])

	second := s.SwapAndGet()
	require.Empty(t, second, "second immediate swap must return an empty mapping")
}

func TestSwapAndGetEmpty(t *testing.T) {
	s := New(0.5)
	require.Empty(t, s.SwapAndGet())
}

func TestNoLostIncrementsUnderConcurrency(t *testing.T) {
	// Rate 1.0 makes every Record count, so the drained sum must be exact.
	s := New(1.0)

	const (
		workers = 64
		perKey  = 200
		keys    = 8
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("detail:%d", w%keys)
			for i := 0; i < perKey; i++ {
				s.Record(key)
			}
		}(w)
	}
	wg.Wait()

	counts := s.SwapAndGet()
	var total uint64
	for _, c := range counts {
		total += c
	}
	require.Equal(t, uint64(workers*perKey), total)
	require.Len(t, counts, keys)
}

func TestRecordsAfterSwapStartFresh(t *testing.T) {
	s := New(1.0)
	for i := 0; i < 5; i++ {
		s.Record("rank:legend")
	}

	drained := s.SwapAndGet()
	require.Equal(t, uint64(5), drained["rank:legend"])

	for i := 0; i < 3; i++ {
		s.Record("rank:legend")
	}
	require.Equal(t, uint64(3), s.SwapAndGet()["rank:legend"])
}
