package badger

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// valueLogFileSize keeps the value log small; stored records are a few KB each
const valueLogFileSize = 64 << 20

// DB is the single Badger database behind the KV store, the blog archive and the response cache
type DB struct {
	store  *badgerhold.Store
	path   string
	logger arbor.ILogger
}

// Open opens (or creates) the database directory named in config,
// wiping it first when ResetOnStartup is set
func Open(logger arbor.ILogger, config *common.BadgerConfig) (*DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("badger path is not configured")
	}

	if config.ResetOnStartup {
		logger.Warn().Str("path", config.Path).Msg("Resetting database (reset_on_startup=true)")
		if err := os.RemoveAll(config.Path); err != nil {
			return nil, fmt.Errorf("failed to reset database directory: %w", err)
		}
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(config.Path).
		WithLogger(nil).
		WithValueLogFileSize(valueLogFileSize)

	start := time.Now()
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().
		Str("path", config.Path).
		Int64("open_ms", time.Since(start).Milliseconds()).
		Msg("Badger database opened")

	return &DB{store: store, path: config.Path, logger: logger}, nil
}

// Store returns the badgerhold store used for typed records
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Badger returns the raw handle used for entries with native TTLs
func (d *DB) Badger() *badger.DB {
	return d.store.Badger()
}

// Path returns the database directory
func (d *DB) Path() string {
	return d.path
}

// Close flushes and closes the database
func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	d.store = nil
	return nil
}
