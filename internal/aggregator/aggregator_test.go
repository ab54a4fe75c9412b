package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/config"
	"github.com/goboard/hotrank/internal/fallback"
	"github.com/goboard/hotrank/internal/stats"
)

// fakeWriter records realtime increments and can start failing after a set
// number of calls.
type fakeWriter struct {
	mu        sync.Mutex
	scores    map[int64]float64
	failAfter int // fail every call once this many have succeeded; 0 = never
	calls     int
}

func newFakeWriter(failAfter int) *fakeWriter {
	return &fakeWriter{scores: make(map[int64]float64), failAfter: failAfter}
}

func (f *fakeWriter) IncrementRealtimeScore(_ context.Context, id int64, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAfter > 0 && f.calls > f.failAfter {
		return errors.New("primary store down")
	}
	f.scores[id] += delta
	return nil
}

func (f *fakeWriter) score(id int64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores[id]
}

func defaultWeights() config.Weights {
	return config.Weights{
		CommentAdded:    3.0,
		CommentRemoved:  -3.0,
		ReactionAdded:   2.0,
		ReactionRemoved: -2.0,
		Viewed:          0.1,
	}
}

func newTestAggregator(w *fakeWriter, fb *fallback.Store) *Aggregator {
	return New(w, fb, defaultWeights(), 16, zap.NewNop(), stats.Noop{})
}

func TestApplyHealthyPrimary(t *testing.T) {
	w := newFakeWriter(0)
	fb := fallback.New(0)
	a := newTestAggregator(w, fb)

	for i := 0; i < 3; i++ {
		a.Apply(context.Background(), CommentAdded{ID: 100})
	}

	require.InDelta(t, 9.0, w.score(100), 1e-9)
	require.False(t, fb.HasData())
}

func TestApplyFailureRedirectsToFallback(t *testing.T) {
	// Third increment fails: primary keeps +6.0, fallback holds the +3.0.
	w := newFakeWriter(2)
	fb := fallback.New(0)
	a := newTestAggregator(w, fb)

	for i := 0; i < 3; i++ {
		a.Apply(context.Background(), CommentAdded{ID: 100})
	}

	require.InDelta(t, 6.0, w.score(100), 1e-9)
	require.Equal(t, []int64{100}, fb.TopPostIDs(0, 10))
	require.InDelta(t, 3.0, fb.Snapshot()[100], 1e-9)
}

func TestEventWeights(t *testing.T) {
	w := newFakeWriter(0)
	a := newTestAggregator(w, fallback.New(0))
	ctx := context.Background()

	a.Apply(ctx, CommentAdded{ID: 1})
	a.Apply(ctx, CommentRemoved{ID: 1})
	require.InDelta(t, 0.0, w.score(1), 1e-9)

	a.Apply(ctx, ReactionToggled{ID: 2, Added: true})
	require.InDelta(t, 2.0, w.score(2), 1e-9)
	a.Apply(ctx, ReactionToggled{ID: 2, Added: false})
	require.InDelta(t, 0.0, w.score(2), 1e-9)

	a.Apply(ctx, Viewed{ID: 3})
	require.InDelta(t, 0.1, w.score(3), 1e-9)
}

func TestPublishProcessesAsynchronously(t *testing.T) {
	w := newFakeWriter(0)
	a := newTestAggregator(w, fallback.New(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		a.Publish(Viewed{ID: 7})
	}

	require.Eventually(t, func() bool {
		return w.score(7) > 0.49
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.InDelta(t, 0.5, w.score(7), 1e-9)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	w := newFakeWriter(0)
	// Queue of 16, no consumer running.
	a := newTestAggregator(w, fallback.New(0))

	for i := 0; i < 100; i++ {
		a.Publish(Viewed{ID: 9}) // must not block
	}
	require.Len(t, a.queue, 16)
}
