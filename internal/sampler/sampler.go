// Package sampler estimates per-key read volume by counting a fixed fraction
// of cache reads. The coin flip is lock-free and happens before any lock, so
// the ~90% of reads that are not sampled pay a single random draw and
// nothing else.
package sampler

import (
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/goboard/hotrank/internal/random"
)

const defaultShardCount = 32

// Sampler counts sampled reads per cache key. Counters live in a generation
// that SwapAndGet replaces under the write lock, which makes a drain a
// linearizable cut: every increment lands entirely in the returned snapshot
// or entirely in the fresh generation, never split or lost.
type Sampler struct {
	rate float64
	rnd  *random.Source

	// mu orders increments against generation swaps. Sampled increments
	// share the read lock and only touch an atomic counter inside it;
	// SwapAndGet is the sole writer.
	mu  sync.RWMutex
	gen *generation
}

// generation is one sampling window: sharded concurrent maps of counters.
type generation struct {
	shards []shard
	mask   uint64
}

type shard struct {
	counts sync.Map // key string -> *atomic.Uint64
}

// New creates a Sampler counting reads with probability rate (0 < rate <= 1).
func New(rate float64) *Sampler {
	return &Sampler{
		rate: rate,
		rnd:  random.NewSource(0),
		gen:  newGeneration(defaultShardCount),
	}
}

func newGeneration(shardCount int) *generation {
	p := 1
	for p < shardCount {
		p <<= 1
	}
	return &generation{
		shards: make([]shard, p),
		mask:   uint64(p - 1),
	}
}

// Rate returns the sampling probability; reported counts approximate
// true traffic times Rate.
func (s *Sampler) Rate() float64 { return s.rate }

// Record counts a read of key with probability rate, otherwise does nothing.
// Safe for arbitrary concurrent callers; sampled increments are never lost.
func (s *Sampler) Record(key string) {
	if s.rnd.Float64() >= s.rate {
		return
	}

	s.mu.RLock()
	g := s.gen
	sh := &g.shards[xxh3.HashString(key)&g.mask]
	c, ok := sh.counts.Load(key)
	if !ok {
		c, _ = sh.counts.LoadOrStore(key, atomic.NewUint64(0))
	}
	c.(*atomic.Uint64).Inc()
	s.mu.RUnlock()
}

// SwapAndGet atomically exchanges the live counters for a fresh generation
// and returns the drained counts. Any increment that completed before the
// swap is in the returned map; any that starts after is credited to the new
// generation. An immediate second call returns an empty map.
func (s *Sampler) SwapAndGet() map[string]uint64 {
	s.mu.Lock()
	old := s.gen
	s.gen = newGeneration(defaultShardCount)
	s.mu.Unlock()

	out := make(map[string]uint64)
	for i := range old.shards {
		old.shards[i].counts.Range(func(k, v any) bool {
			if n := v.(*atomic.Uint64).Load(); n > 0 {
				out[k.(string)] = n
			}
			return true
		})
	}
	return out
}
