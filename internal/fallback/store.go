// Package fallback holds realtime score deltas in process memory while the
// primary store is unreachable. It is explicitly single-instance and
// best-effort: each running instance accumulates only what it saw, and the
// reconciler flushes it back once the primary store is healthy.
package fallback

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
)

const defaultShardCount = 32

// Store accumulates signed score deltas per content ID. Shards are locked
// independently, so increments to distinct IDs proceed in parallel while
// increments to the same ID serialize on its shard.
type Store struct {
	shards []shard
	mask   uint64
	seq    atomic.Uint64 // insertion order, breaks ranking ties
}

type shard struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

type entry struct {
	score float64
	seq   uint64
}

// New creates a Store with the given shard count (rounded up to a power of
// two; <=0 selects the default).
func New(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	p := 1
	for p < shardCount {
		p <<= 1
	}

	s := &Store{
		shards: make([]shard, p),
		mask:   uint64(p - 1),
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[int64]*entry)
	}
	return s
}

func (s *Store) shardFor(id int64) *shard {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return &s.shards[xxh3.Hash(b[:])&s.mask]
}

// IncrementScore atomically adds delta to the accumulated total for id,
// creating the entry at zero if absent. No update is lost under concurrent
// callers touching the same or different IDs.
func (s *Store) IncrementScore(id int64, delta float64) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if !ok {
		e = &entry{seq: s.seq.Inc()}
		sh.entries[id] = e
	}
	e.score += delta
	sh.mu.Unlock()
}

// TopPostIDs returns the IDs with a strictly positive accumulated total,
// ordered by total descending with ties broken by first-insertion order,
// windowed by [offset, offset+limit). Non-positive entries are hidden but
// kept, so a later positive delta restores their visibility.
func (s *Store) TopPostIDs(offset, limit int) []int64 {
	if offset < 0 || limit <= 0 {
		return nil
	}

	type ranked struct {
		id    int64
		score float64
		seq   uint64
	}
	var all []ranked
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id, e := range sh.entries {
			if e.score > 0 {
				all = append(all, ranked{id: id, score: e.score, seq: e.seq})
			}
		}
		sh.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].seq < all[j].seq
	})

	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	ids := make([]int64, 0, end-offset)
	for _, r := range all[offset:end] {
		ids = append(ids, r.id)
	}
	return ids
}

// Size counts all stored IDs, including non-positive ones. Intended for
// health reporting, not for ranking.
func (s *Store) Size() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// HasData reports whether any ID is stored, positive or not.
func (s *Store) HasData() bool {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n := len(sh.entries)
		sh.mu.RUnlock()
		if n > 0 {
			return true
		}
	}
	return false
}

// Snapshot copies every pending delta, including non-positive ones. The
// reconciler replays the snapshot into the primary store and reclaims each
// replayed amount with Reclaim.
func (s *Store) Snapshot() map[int64]float64 {
	out := make(map[int64]float64)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id, e := range sh.entries {
			out[id] = e.score
		}
		sh.mu.RUnlock()
	}
	return out
}

// Reclaim subtracts a replayed amount from id's pending total, removing the
// entry when nothing remains. A delta that arrived after the snapshot was
// taken survives as the remainder, so replaying a snapshot never wipes
// increments it did not carry.
func (s *Store) Reclaim(id int64, amount float64) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	if e, ok := sh.entries[id]; ok {
		e.score -= amount
		if e.score == 0 {
			delete(sh.entries, id)
		}
	}
	sh.mu.Unlock()
}

// Clear removes all entries unconditionally, discarding pending deltas.
// Reconciliation uses Reclaim instead; Clear is for operator-driven resets.
func (s *Store) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[int64]*entry)
		sh.mu.Unlock()
	}
}
