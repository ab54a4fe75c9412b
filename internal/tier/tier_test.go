package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	require.Equal(t, "rank:weekly", RankKey(Weekly))
	require.Equal(t, "rank:pinned", RankKey(Pinned))
	require.Equal(t, "summary:realtime", SummaryKey(Realtime))
	require.Equal(t, "detail:12345", DetailKey(12345))
	require.Equal(t, "score:realtime", RealtimeScoreKey)
}

func TestTableShapes(t *testing.T) {
	table := Table(24*time.Hour, 48*time.Hour)

	require.Equal(t, KindNone, table[Realtime].Kind)
	require.Equal(t, KindSortedSet, table[Weekly].Kind)
	require.Equal(t, KindSortedSet, table[Legend].Kind)
	require.Equal(t, KindSet, table[Pinned].Kind)

	require.Zero(t, table[Realtime].TTL)
	require.Zero(t, table[Pinned].TTL)
	require.Equal(t, 24*time.Hour, table[Weekly].TTL)
	require.Equal(t, 48*time.Hour, table[Legend].TTL)

	require.False(t, table[Realtime].Refreshable)
	require.False(t, table[Pinned].Refreshable)
	require.True(t, table[Weekly].Refreshable)
	require.True(t, table[Legend].Refreshable)
}
