package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/marketpulse/internal/models"
)

// ErrBlogNotFound is returned when a blog post ID does not exist
var ErrBlogNotFound = errors.New("blog post not found")

// ErrCacheMiss is returned by ResponseCache.Get when nothing fresh is stored
var ErrCacheMiss = errors.New("cache miss")

// BlogStorage persists generated blog posts
type BlogStorage interface {
	SaveBlog(ctx context.Context, post *models.BlogPost) error
	GetBlog(ctx context.Context, id string) (*models.BlogPost, error)
	// ListBlogs returns posts newest first; an empty kind matches every kind
	ListBlogs(ctx context.Context, kind models.BlogKind, limit int) ([]*models.BlogPost, error)
	DeleteBlog(ctx context.Context, id string) error
}

// ResponseCache stores rendered responses for a bounded time
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// StorageManager owns every persistent store
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	BlogStorage() BlogStorage
	Cache() ResponseCache
	Close() error
}
