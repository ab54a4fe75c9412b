package tier

import (
	"errors"
	"time"
)

// ErrUnknownKeyPattern is returned when a TTL refresh is forced on a key the
// registry has never been told about.
var ErrUnknownKeyPattern = errors.New("unknown cache key pattern")

type policyEntry struct {
	ttl         time.Duration
	refreshable bool
}

// PolicyRegistry is the single source of truth for each cache key's original
// TTL and refresh eligibility. It is populated once at startup from the same
// tier table the store uses and is read-only afterwards, so concurrent reads
// need no locking.
type PolicyRegistry struct {
	entries map[string]policyEntry
}

// NewPolicyRegistry builds the registry from the tier table plus the shared
// summary-list TTL. Only weekly/legend ranking and summary keys are
// refresh-eligible: realtime has no TTL to refresh and pinned is permanent.
func NewPolicyRegistry(table map[Tier]Policy, summaryTTL time.Duration) *PolicyRegistry {
	entries := make(map[string]policyEntry)
	for t, pol := range table {
		if pol.Kind != KindNone && pol.TTL > 0 {
			entries[RankKey(t)] = policyEntry{ttl: pol.TTL, refreshable: pol.Refreshable}
		}
		entries[SummaryKey(t)] = policyEntry{ttl: summaryTTL, refreshable: pol.Refreshable}
	}
	return &PolicyRegistry{entries: entries}
}

// OriginalTTL reports the nominal TTL configured for key. The second return
// is false for unregistered keys; "not configured" is a normal state, not an
// error.
func (r *PolicyRegistry) OriginalTTL(key string) (time.Duration, bool) {
	e, ok := r.entries[key]
	if !ok {
		return 0, false
	}
	return e.ttl, true
}

// IsRefreshable reports whether key's TTL may be adaptively extended.
// Unregistered keys are never refreshable.
func (r *PolicyRegistry) IsRefreshable(key string) bool {
	return r.entries[key].refreshable
}
