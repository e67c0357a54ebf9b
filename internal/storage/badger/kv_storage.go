package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage stores runtime API keys and scheduler settings.
// Keys are trimmed and lowercased before every operation.
type KVStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewKVStorage creates the key/value store on an open database
func NewKVStorage(db *DB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{db: db, logger: logger}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) load(key string) (*interfaces.KeyValuePair, error) {
	var pair interfaces.KeyValuePair
	err := s.db.Store().Get(key, &pair)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return &pair, nil
}

// Get returns the value stored under key
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	pair, err := s.load(normalizeKey(key))
	if err != nil {
		return "", err
	}
	return pair.Value, nil
}

// GetPair returns the value and its metadata
func (s *KVStorage) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	return s.load(normalizeKey(key))
}

// Set writes a value, keeping the original CreatedAt of an existing key
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	_, err := s.Upsert(ctx, key, value, description)
	return err
}

// Upsert writes a value and reports whether the key was new
func (s *KVStorage) Upsert(ctx context.Context, key string, value string, description string) (bool, error) {
	key = normalizeKey(key)
	if key == "" {
		return false, fmt.Errorf("key cannot be empty")
	}

	now := time.Now()
	pair := interfaces.KeyValuePair{
		Key:         key,
		Value:       value,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	existing, err := s.load(key)
	switch {
	case err == nil:
		pair.CreatedAt = existing.CreatedAt
	case !errors.Is(err, interfaces.ErrKeyNotFound):
		return false, err
	}

	if err := s.db.Store().Upsert(key, &pair); err != nil {
		return false, fmt.Errorf("failed to write key %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Bool("created", existing == nil).Msg("Key stored")
	return existing == nil, nil
}

// Delete removes a key; a missing key is ErrKeyNotFound
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(normalizeKey(key), &interfaces.KeyValuePair{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List returns every pair, most recently updated first
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs, err := s.all()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].UpdatedAt.After(pairs[j].UpdatedAt) })
	return pairs, nil
}

// ListByPrefix returns the pairs whose key starts with prefix, ordered by key
func (s *KVStorage) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	all, err := s.all()
	if err != nil {
		return nil, err
	}

	prefix = normalizeKey(prefix)
	pairs := all[:0]
	for _, pair := range all {
		if strings.HasPrefix(pair.Key, prefix) {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func (s *KVStorage) all() ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	if err := s.db.Store().Find(&pairs, nil); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return pairs, nil
}
