package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// RedisClient is the subset of go-redis client methods used by RedisCache.
// Keeping it as an interface enables mocking in tests.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisCacheConfig holds configuration for the Redis catalog cache.
type RedisCacheConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisCache stores each session as a hash of locator -> catalog JSON, so
// several replicas of the API share configuration sessions.
type RedisCache struct {
	cfg    RedisCacheConfig
	client RedisClient
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisCacheConfig) (*RedisCache, error) {
	opts := &redis.Options{
		Addr: cfg.Address,
		DB:   cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("catalog cache: redis ping failed: %w", err)
	}
	return &RedisCache{cfg: cfg, client: client}, nil
}

// NewRedisCacheWithClient creates a RedisCache backed by a pre-built client.
func NewRedisCacheWithClient(cfg RedisCacheConfig, client RedisClient) *RedisCache {
	return &RedisCache{cfg: cfg, client: client}
}

func (c *RedisCache) Get(ctx context.Context, session, locator string) (*wsdl.Catalog, bool, error) {
	data, err := c.client.HGet(ctx, c.key(session), locator).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("catalog cache: get: %w", err)
	}
	var cat wsdl.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, false, fmt.Errorf("catalog cache: decode: %w", err)
	}
	return &cat, true, nil
}

func (c *RedisCache) Set(ctx context.Context, session, locator string, cat *wsdl.Catalog, ttl time.Duration) error {
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("catalog cache: encode: %w", err)
	}
	key := c.key(session)
	if err := c.client.HSet(ctx, key, locator, data).Err(); err != nil {
		return fmt.Errorf("catalog cache: set: %w", err)
	}
	if ttl > 0 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("catalog cache: expire: %w", err)
		}
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, session string) error {
	if err := c.client.Del(ctx, c.key(session)).Err(); err != nil {
		return fmt.Errorf("catalog cache: invalidate: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(session string) string {
	return c.cfg.Prefix + "session:" + session
}
