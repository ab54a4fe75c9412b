// Package random provides a lock-free uniform float source for sampling
// decisions. State is sharded SplitMix64 advanced via atomic CAS, so callers
// on a hot read path never take a mutex.
package random

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Source is a concurrency-safe uniform random source. Each Source owns its
// shard array, so independent components never contend on shared generator
// state. The zero value is unusable; construct with NewSource.
type Source struct {
	states []paddedState
	mask   uint32
	rr     uint32 // round-robin shard picker
}

type paddedState struct {
	state uint64
	_     [7]uint64 // keep states on separate cache lines
}

// NewSource creates a Source with n state shards, time-seeded. If n<=0 it
// uses GOMAXPROCS*4, rounded up to a power of two for a cheap mask.
func NewSource(n int) *Source {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0) * 4
		if n < 1 {
			n = 1
		}
	}
	p := 1
	for p < n {
		p <<= 1
	}

	s := &Source{
		states: make([]paddedState, p),
		mask:   uint32(p - 1),
	}
	seed := mix(uint64(time.Now().UnixNano()))
	for i := range s.states {
		seed += 0x9e3779b97f4a7c15
		s.states[i].state = mix(seed)
		if s.states[i].state == 0 {
			s.states[i].state = 0x9e3779b97f4a7c15
		}
	}
	return s
}

// Float64 returns a uniform value in [0,1) using 53 random bits.
func (s *Source) Float64() float64 {
	i := atomic.AddUint32(&s.rr, 1) & s.mask
	x := next(&s.states[i].state)
	const inv53 = 1.0 / 9007199254740992.0 // 2^53
	return float64(x>>11) * inv53
}

// next advances the shard state atomically and returns a mixed 64-bit value
// (the canonical SplitMix64 step).
func next(s *uint64) uint64 {
	for {
		old := atomic.LoadUint64(s)
		x := old + 0x9e3779b97f4a7c15
		if atomic.CompareAndSwapUint64(s, old, x) {
			return mix(x)
		}
	}
}

func mix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return z
}
