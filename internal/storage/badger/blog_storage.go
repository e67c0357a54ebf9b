package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// BlogStorage implements interfaces.BlogStorage on badgerhold
type BlogStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewBlogStorage creates a new BlogStorage instance
func NewBlogStorage(db *DB, logger arbor.ILogger) interfaces.BlogStorage {
	return &BlogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *BlogStorage) SaveBlog(ctx context.Context, post *models.BlogPost) error {
	if post == nil || post.ID == "" {
		return errors.New("blog post requires an ID")
	}

	if err := s.db.Store().Upsert(post.ID, post); err != nil {
		return fmt.Errorf("failed to save blog post %s: %w", post.ID, err)
	}

	s.logger.Debug().Str("id", post.ID).Str("kind", string(post.Kind)).Msg("Blog post saved")
	return nil
}

func (s *BlogStorage) GetBlog(ctx context.Context, id string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := s.db.Store().Get(id, &post)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrBlogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post %s: %w", id, err)
	}
	return &post, nil
}

func (s *BlogStorage) ListBlogs(ctx context.Context, kind models.BlogKind, limit int) ([]*models.BlogPost, error) {
	var query *badgerhold.Query
	if kind == "" {
		query = badgerhold.Where("ID").Ne("")
	} else {
		query = badgerhold.Where("Kind").Eq(kind)
	}
	query = query.SortBy("GeneratedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []models.BlogPost
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}

	result := make([]*models.BlogPost, len(posts))
	for i := range posts {
		result[i] = &posts[i]
	}
	return result, nil
}

func (s *BlogStorage) DeleteBlog(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.BlogPost{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrBlogNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete blog post %s: %w", id, err)
	}
	return nil
}
