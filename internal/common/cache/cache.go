package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rplatform "loyalty-points-backend/internal/platform/redis"
)

// CacheService is a JSON cache over Redis. With a nil client every read
// misses and GetOrSet always calls the setter.
type CacheService struct {
	redisClient *rplatform.Client
	defaultTTL  time.Duration
}

func NewCacheService(redisClient *rplatform.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		redisClient: redisClient,
		defaultTTL:  defaultTTL,
	}
}

func (c *CacheService) enabled() bool {
	return c != nil && c.redisClient != nil
}

// Get decodes the cached value into dest.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return fmt.Errorf("cache disabled")
	}
	data, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set stores value under key. A zero ttl means the default TTL.
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.redisClient.Set(ctx, key, data, ttl).Err()
}

func (c *CacheService) Delete(ctx context.Context, key string) error {
	if !c.enabled() {
		return nil
	}
	return c.redisClient.Del(ctx, key).Err()
}

// DeletePrefix removes every key starting with prefix using SCAN.
func (c *CacheService) DeletePrefix(ctx context.Context, prefix string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.redisClient.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.redisClient.Del(ctx, keys...).Err()
	}
	return nil
}

// GetOrSet reads key into dest, or calls setter, caches its result and
// copies it into dest. Cache write failures do not fail the call.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := setter()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
