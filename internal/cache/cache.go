// Package cache wraps Redis for the two roles it plays here: a short-TTL
// read cache over the public event endpoints, and the replay guard for QR
// attendance scans. The database stays authoritative; every method degrades
// to a miss when Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/models"
)

const eventKeyPrefix = "pda:events:"

// EventListKey is the cache key for a public listing scope ("ongoing", "all").
func EventListKey(scope string) string {
	return eventKeyPrefix + scope
}

// EventKey is the cache key for a single public event read.
func EventKey(slug string) string {
	return eventKeyPrefix + "slug:" + slug
}

func scanKey(eventSlug string, roundID int64, entity models.EntityRef) string {
	return fmt.Sprintf("scan:%s:%d:%s:%d", eventSlug, roundID, entity.Type, entity.ID)
}

// Cache methods accept a nil receiver: a nil or Redis-less cache behaves as
// permanently missing.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger.Sugar()}
}

// GetJSON loads a cached value into dest, reporting whether it was a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnw("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warnw("Cache payload corrupt, dropping", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores a value under the configured TTL. Failures are logged and
// swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warnw("Cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warnw("Cache write failed", "key", key, "error", err)
	}
}

// InvalidateEvents drops all public event cache entries. Called after any
// admin mutation that changes what the public endpoints serve.
func (c *Cache) InvalidateEvents(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, eventKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warnw("Cache scan failed during invalidation", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warnw("Cache invalidation failed", "keys", len(keys), "error", err)
		}
	}
}

// ClaimScan claims the replay-guard slot for one attendance scan. It returns
// false when the same entity was already scanned for this round within the
// guard TTL, so double-scans respond idempotently. Redis being down fails
// open: the scan proceeds and the database upsert stays idempotent anyway.
func (c *Cache) ClaimScan(ctx context.Context, eventSlug string, roundID int64, entity models.EntityRef, ttl time.Duration) bool {
	if c == nil || c.rdb == nil {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, scanKey(eventSlug, roundID, entity), 1, ttl).Result()
	if err != nil {
		c.logger.Warnw("Scan replay guard unavailable", "error", err)
		return true
	}
	return ok
}

// ReleaseScan frees a claimed slot, used when the scan failed after claiming.
func (c *Cache) ReleaseScan(ctx context.Context, eventSlug string, roundID int64, entity models.EntityRef) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, scanKey(eventSlug, roundID, entity)).Err(); err != nil {
		c.logger.Warnw("Scan replay guard release failed", "error", err)
	}
}
