// Package cache is an optional Redis read-through for the derived views.
// With no Redis address configured every operation is a no-op, so callers
// never branch on whether caching is on.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/config"
)

// Cache keys for the derived views. Flush removes exactly these.
const (
	KeyTimeline = "geomark:timeline"
	KeyFolders  = "geomark:folders"
	KeyStats    = "geomark:stats"
)

// Cache wraps a Redis client. A nil client means caching is disabled.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a cache from config. An empty Redis address disables it.
func New(cfg config.CacheConfig) *Cache {
	if cfg.RedisAddr == "" {
		return &Cache{}
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		ttl: time.Duration(cfg.TTLSecs) * time.Second,
	}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON loads a cached value into dest. Returns false on miss, disabled
// cache, or any error; cache failures never surface to callers.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !eris.Is(err, redis.Nil) {
			zap.L().Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		zap.L().Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores a value under key with the configured TTL. Errors are
// logged and dropped.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		zap.L().Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Flush drops the derived-view keys. Called after every import so stale
// views never outlive the data they were computed from.
func (c *Cache) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, KeyTimeline, KeyFolders, KeyStats).Err(); err != nil {
		return eris.Wrap(err, "cache: flush")
	}
	return nil
}

// Close releases the Redis connection if one exists.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
