package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
	rplatform "loyalty-points-backend/internal/platform/redis"
)

func newTestClient(t *testing.T) (*rplatform.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return &rplatform.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}, mr
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewLeaderboardCache(client, 15*time.Second)

	_, ok, err := cache.Get(ctx, ledger.PeriodWeekly, "2025-W02")
	require.NoError(t, err)
	assert.False(t, ok)

	standings := []ledger.Standing{{UserID: 1, Points: 300}, {UserID: 2, Points: 100}}
	require.NoError(t, cache.Set(ctx, ledger.PeriodWeekly, "2025-W02", standings))
	assert.True(t, mr.Exists("leaderboard:weekly:2025-W02"))

	got, ok, err := cache.Get(ctx, ledger.PeriodWeekly, "2025-W02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), got[0].Points)

	mr.FastForward(16 * time.Second)
	_, ok, err = cache.Get(ctx, ledger.PeriodWeekly, "2025-W02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilLeaderboardCacheMisses(t *testing.T) {
	var cache *LeaderboardCache
	_, ok, err := cache.Get(context.Background(), ledger.PeriodAllTime, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Set(context.Background(), ledger.PeriodAllTime, "", nil))
}
