package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
// Redis errors are reported the same way so that callers always fall back
// to the source of truth instead of failing the request.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a thin JSON cache over Redis. Reads treat any backend error as a
// miss; writes swallow errors after logging. A request must never block on
// cache availability.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(cfg *config.RedisConfig) (*Cache, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing Redis client (used by tests and by
// components that share the connection).
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Client exposes the underlying Redis client for components that need raw
// commands (the scan queue uses list and SETNX operations directly).
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		logger.Info("Closing Redis connection", nil)
		return c.client.Close()
	}
	return nil
}

// Get unmarshals the cached JSON value at key into dest.
// Returns ErrCacheMiss when the key is absent or the backend is unavailable.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		logger.Warn("Cache read failed, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		logger.Warn("Cache entry is not valid JSON, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return ErrCacheMiss
	}
	return nil
}

// Set marshals value to JSON and stores it with the given TTL.
// Errors are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to marshal cache value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("Cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Delete removes a key. Errors are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache delete failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}

// Version reads the current version counter for a named cache family.
// Keys that embed the version become unreachable when the counter is bumped,
// which invalidates the whole family without enumerating keys.
// A missing counter or backend error reads as version 1.
func (c *Cache) Version(ctx context.Context, name string) int64 {
	key := versionKey(name)
	val, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 1
	}
	if err != nil {
		logger.Warn("Cache version read failed, using default", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return 1
	}
	return val
}

// BumpVersion increments the version counter for a named cache family.
func (c *Cache) BumpVersion(ctx context.Context, name string) {
	key := versionKey(name)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		logger.Warn("Cache version bump failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// VersionedKey builds a key that embeds the current version of the family.
func (c *Cache) VersionedKey(ctx context.Context, name, suffix string) string {
	return fmt.Sprintf("%s:v%d:%s", name, c.Version(ctx, name), suffix)
}

func versionKey(name string) string {
	return fmt.Sprintf("cache_version:%s", name)
}
