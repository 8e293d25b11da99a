package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "reputation:"

// RedisCache stores reputation verdicts in Redis. Expiry is delegated to key TTLs.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

type redisEntry struct {
	Malicious  int   `json:"malicious"`
	Suspicious int   `json:"suspicious"`
	CheckedAt  int64 `json:"checked_at"`
	ExpiresAt  int64 `json:"expires_at"`
}

// NewRedisCache connects to addr
func NewRedisCache(ctx context.Context, addr string, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, logger: logger, now: time.Now}, nil
}

// Get retrieves the cached verdict for a URL
func (c *RedisCache) Get(ctx context.Context, url string) (*core.ReputationEntry, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	entry := &core.ReputationEntry{
		URL:        url,
		Malicious:  stored.Malicious,
		Suspicious: stored.Suspicious,
		CheckedAt:  time.Unix(stored.CheckedAt, 0).UTC(),
		ExpiresAt:  time.Unix(stored.ExpiresAt, 0).UTC(),
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return entry, nil
}

// Set stores a verdict with a TTL matching its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.ReputationEntry) error {
	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(redisEntry{
		Malicious:  entry.Malicious,
		Suspicious: entry.Suspicious,
		CheckedAt:  entry.CheckedAt.Unix(),
		ExpiresAt:  entry.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+entry.URL, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+url).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
