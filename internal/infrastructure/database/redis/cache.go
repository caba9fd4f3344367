package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// Cache is a JSON-serializing cache on top of the shared client.  It
// satisfies the report service's ReportCache contract.
type Cache struct {
	client     *Client
	defaultTTL time.Duration
	logger     logging.Logger
}

// NewCache constructs the cache.  defaultTTL applies when SetJSON gets a
// non-positive TTL.
func NewCache(client *Client, defaultTTL time.Duration, log logging.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &Cache{client: client, defaultTTL: defaultTTL, logger: log.Named("cache")}
}

// GetJSON reads and decodes a cached value.  A miss returns (false, nil).
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.rdb.Get(ctx, c.client.Key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "cache read failed")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSerialization, "cache entry decode failed")
	}
	return true, nil
}

// SetJSON encodes and stores a value with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache entry encode failed")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.rdb.Set(ctx, c.client.Key(key), raw, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache write failed")
	}
	return nil
}

// Delete removes a cached entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.rdb.Del(ctx, c.client.Key(key)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}
