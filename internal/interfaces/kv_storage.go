package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned for a key that was never stored or was deleted
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair is one stored setting or runtime API key
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueReader resolves stored API keys
type KeyValueReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// KeyValueStorage holds runtime API keys and scheduler settings. Keys are case-insensitive.
type KeyValueStorage interface {
	KeyValueReader
	GetPair(ctx context.Context, key string) (*KeyValuePair, error)
	Set(ctx context.Context, key string, value string, description string) error
	// Upsert reports whether the key was created
	Upsert(ctx context.Context, key string, value string, description string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List is ordered most recently updated first
	List(ctx context.Context) ([]KeyValuePair, error)
	// ListByPrefix is ordered by key
	ListByPrefix(ctx context.Context, prefix string) ([]KeyValuePair, error)
}
