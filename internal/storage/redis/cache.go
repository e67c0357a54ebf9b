// Package redis provides a ResponseCache shared between service replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
)

const keyPrefix = "marketpulse:cache:"

// Cache implements interfaces.ResponseCache on a redis server
type Cache struct {
	client *redis.Client
	logger arbor.ILogger
}

// NewCache connects to redisURL (redis://host:port/db, or a bare host:port) and pings it
func NewCache(ctx context.Context, redisURL string, logger arbor.ILogger) (*Cache, error) {
	if redisURL == "" {
		return nil, errors.New("redis cache requires cache.redis_url or REDIS_URL")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opt.Addr, err)
	}

	logger.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("Redis response cache connected")

	return &Cache{client: client, logger: logger}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
