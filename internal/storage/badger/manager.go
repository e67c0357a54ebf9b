package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *DB
	kv     interfaces.KeyValueStorage
	blog   interfaces.BlogStorage
	cache  interfaces.ResponseCache
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager. The response cache defaults
// to the badger TTL cache and can be swapped with SetCache.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := Open(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		blog:   NewBlogStorage(db, logger),
		cache:  NewCache(db, logger),
		logger: logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// BlogStorage returns the blog archive
func (m *Manager) BlogStorage() interfaces.BlogStorage {
	return m.blog
}

// Cache returns the response cache
func (m *Manager) Cache() interfaces.ResponseCache {
	return m.cache
}

// SetCache replaces the response cache (redis, or a no-op cache when caching is off)
func (m *Manager) SetCache(cache interfaces.ResponseCache) {
	m.cache = cache
}

// Close closes the cache and the database connection
func (m *Manager) Close() error {
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to close response cache")
		}
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
