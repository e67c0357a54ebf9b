package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
)

const cacheKeyPrefix = "cache:"

// Cache is a ResponseCache backed by raw badger entries with native TTLs.
// Keys are namespaced so they never collide with badgerhold records.
type Cache struct {
	db     *DB
	logger arbor.ILogger
}

// NewCache creates a badger-backed response cache on an open database
func NewCache(db *DB, logger arbor.ILogger) *Cache {
	return &Cache{db: db, logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.Badger().View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := c.db.Badger().Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(cacheKeyPrefix+key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the database is owned by the Manager
func (c *Cache) Close() error {
	return nil
}
