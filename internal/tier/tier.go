// Package tier defines the four popularity tiers, their backing structure
// kinds and TTL policies, and the cache-key layout derived from them.
//
// Tier behavior is carried as data (structure kind + TTL + refresh flag) so
// that write/read paths dispatch on the policy rather than on scattered
// tier-equality checks; a future tier is a table row, not new logic.
package tier

import (
	"fmt"
	"strconv"
	"time"
)

// Tier is one of the four popularity classes.
type Tier int

const (
	Realtime Tier = iota
	Weekly
	Legend
	Pinned
)

// Kind is the backing ranking structure of a tier in the primary store.
type Kind int

const (
	// KindNone means the tier has no persisted ID ranking; the realtime
	// ranking is derived live from the score structure.
	KindNone Kind = iota
	// KindSortedSet ranks members by an ascending score assigned at write time.
	KindSortedSet
	// KindSet is membership only, no rank.
	KindSet
)

// Policy is the per-tier structure and retention policy.
type Policy struct {
	Kind Kind
	// TTL is the nominal retention of the tier's ranking structure.
	// Zero means permanent.
	TTL time.Duration
	// Refreshable marks tiers whose ranking TTL may be adaptively extended
	// by the hot-key refresher.
	Refreshable bool
}

var names = map[Tier]string{
	Realtime: "realtime",
	Weekly:   "weekly",
	Legend:   "legend",
	Pinned:   "pinned",
}

func (t Tier) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// All lists every tier in ranking-priority order.
func All() []Tier {
	return []Tier{Realtime, Weekly, Legend, Pinned}
}

// Table builds the tier policy table from the configured durations.
// Realtime has no persisted ranking and Pinned is intentionally permanent,
// so neither is refresh-eligible.
func Table(weeklyTTL, legendTTL time.Duration) map[Tier]Policy {
	return map[Tier]Policy{
		Realtime: {Kind: KindNone},
		Weekly:   {Kind: KindSortedSet, TTL: weeklyTTL, Refreshable: true},
		Legend:   {Kind: KindSortedSet, TTL: legendTTL, Refreshable: true},
		Pinned:   {Kind: KindSet},
	}
}

// RealtimeScoreKey holds the live realtime scores (sorted set, ZINCRBY target).
const RealtimeScoreKey = "score:realtime"

// RankKey is the tier's persisted ID-ranking structure.
func RankKey(t Tier) string { return "rank:" + t.String() }

// SummaryKey is the tier's summary hash (field = content ID).
func SummaryKey(t Tier) string { return "summary:" + t.String() }

// DetailKey is the per-item detail entry.
func DetailKey(id int64) string { return "detail:" + strconv.FormatInt(id, 10) }
