package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"loyalty-points-backend/internal/domain/ledger"
	rplatform "loyalty-points-backend/internal/platform/redis"
)

// LeaderboardCache keeps ordered standings for a short TTL. A nil cache or
// client behaves as a permanent miss.
type LeaderboardCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *rplatform.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) key(period ledger.PeriodType, periodKey string) string {
	if periodKey == "" {
		periodKey = "all"
	}
	return fmt.Sprintf("leaderboard:%s:%s", period, periodKey)
}

// Get returns false on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, period ledger.PeriodType, periodKey string) ([]ledger.Standing, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	v, err := c.client.Get(ctx, c.key(period, periodKey)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var standings []ledger.Standing
	if err := json.Unmarshal(v, &standings); err != nil {
		return nil, false, err
	}
	return standings, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, period ledger.PeriodType, periodKey string, standings []ledger.Standing) error {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := json.Marshal(standings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(period, periodKey), b, c.ttl).Err()
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, period ledger.PeriodType, periodKey string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(period, periodKey)).Err()
}
