package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRegistry() *PolicyRegistry {
	return NewPolicyRegistry(Table(24*time.Hour, 24*time.Hour), 5*time.Minute)
}

func TestRefreshEligibility(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		key  string
		want bool
	}{
		{RankKey(Weekly), true},
		{RankKey(Legend), true},
		{SummaryKey(Weekly), true},
		{SummaryKey(Legend), true},
		{SummaryKey(Realtime), false},
		{SummaryKey(Pinned), false},
		{RankKey(Pinned), false},
		{RealtimeScoreKey, false},
		{"detail:42", false},
		{"nonsense", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, r.IsRefreshable(tt.key), "key %q", tt.key)
	}
}

func TestOriginalTTL(t *testing.T) {
	r := testRegistry()

	ttl, ok := r.OriginalTTL(RankKey(Weekly))
	require.True(t, ok)
	require.Equal(t, 24*time.Hour, ttl)

	ttl, ok = r.OriginalTTL(SummaryKey(Legend))
	require.True(t, ok)
	require.Equal(t, 5*time.Minute, ttl)

	// Unregistered keys are absent, not zero-duration.
	_, ok = r.OriginalTTL("detail:42")
	require.False(t, ok)
	_, ok = r.OriginalTTL("rank:unknown")
	require.False(t, ok)

	// Pinned ranking is permanent, so it carries no TTL to report.
	_, ok = r.OriginalTTL(RankKey(Pinned))
	require.False(t, ok)
}
