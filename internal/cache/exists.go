package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codetracker/internal/config"
	"codetracker/internal/urlutil"
)

// ExistsCache fronts the (user, url) existence check with Redis so the
// hot path of POST /api/problems/check usually skips Mongo.
type ExistsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg config.CacheConfig) (*ExistsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, time.Duration(cfg.TTLHours)*time.Hour), nil
}

// NewWithClient wraps an existing client; tests pass a miniredis-backed one.
func NewWithClient(client *redis.Client, ttl time.Duration) *ExistsCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExistsCache{client: client, ttl: ttl}
}

func key(userID, url string) string {
	return fmt.Sprintf("exists:%s:%s", userID, urlutil.Hash(url))
}

// Get returns (exists, found). found is false on a cache miss or error;
// callers fall through to the store.
func (c *ExistsCache) Get(ctx context.Context, userID, url string) (exists, found bool) {
	val, err := c.client.Get(ctx, key(userID, url)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set records the existence verdict.
func (c *ExistsCache) Set(ctx context.Context, userID, url string, exists bool) error {
	val := "0"
	if exists {
		val = "1"
	}
	return c.client.Set(ctx, key(userID, url), val, c.ttl).Err()
}

// Invalidate drops the entry, used after deletes.
func (c *ExistsCache) Invalidate(ctx context.Context, userID, url string) error {
	return c.client.Del(ctx, key(userID, url)).Err()
}

func (c *ExistsCache) Close() error { return c.client.Close() }
