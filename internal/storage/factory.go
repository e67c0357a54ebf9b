package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/storage/badger"
	"github.com/ternarybob/marketpulse/internal/storage/redis"
)

// NewStorageManager opens the badger store and attaches the configured response cache
func NewStorageManager(ctx context.Context, logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	manager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	switch backend := strings.ToLower(strings.TrimSpace(config.Cache.Backend)); backend {
	case "", "none":
		manager.SetCache(NoopCache{})
	case "badger":
		// badger.NewManager already installed the TTL cache
	case "redis":
		cache, err := redis.NewCache(ctx, config.Cache.RedisURL, logger)
		if err != nil {
			_ = manager.Close()
			return nil, err
		}
		manager.SetCache(cache)
	default:
		_ = manager.Close()
		return nil, fmt.Errorf("unsupported cache backend: %s (expected none, badger or redis)", backend)
	}

	logger.Debug().Str("backend", config.Cache.Backend).Str("ttl", config.Cache.TTL).Msg("Response cache configured")

	return manager, nil
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, interfaces.ErrCacheMiss
}

func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (NoopCache) Close() error { return nil }
