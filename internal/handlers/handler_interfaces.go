package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/marketpulse/internal/alphavantage"
	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/newsapi"
	"github.com/ternarybob/marketpulse/internal/services/blog"
	"github.com/ternarybob/marketpulse/internal/services/kv"
)

// SectorAnalyzer runs the sector aggregation and ranking pipeline.
type SectorAnalyzer interface {
	Analyze(ctx context.Context) (*models.SectorAnalysis, error)
}

// QuoteService serves single quotes and instrument search from DhanHQ.
type QuoteService interface {
	Configured() bool
	Quote(ctx context.Context, symbol string) (*dhan.LegacyQuote, error)
	Search(ctx context.Context, query string) ([]dhan.LegacyQuote, error)
}

// TrendingService ranks the popular stocks by absolute move.
type TrendingService interface {
	Trending(ctx context.Context) (*models.TrendingStocks, error)
}

// TechnicalsClient fetches RSI and MACD for a symbol.
type TechnicalsClient interface {
	Technicals(ctx context.Context, symbol string) (*alphavantage.Technicals, error)
}

// NewsClient fetches recent articles for a symbol.
type NewsClient interface {
	StockNews(ctx context.Context, symbol string, limit int) (*newsapi.StockNews, error)
}

// MentionsClient counts ticker-like words in social posts.
type MentionsClient interface {
	TrendingMentions(ctx context.Context, top int) ([]models.Mention, error)
}

// BlogService generates and lists blog posts.
type BlogService interface {
	GenerateStockBlog(ctx context.Context, req *blog.StockBlogRequest) (*models.StockBlog, error)
	GenerateEducationBlog(ctx context.Context, req *blog.EducationBlogRequest) (*models.EducationBlog, error)
	GenerateDaily(ctx context.Context, now time.Time) (*models.DailyBlog, error)
	Topics() models.TopicCatalog
	List(ctx context.Context, kind models.BlogKind, limit int) ([]*models.BlogPost, error)
	Get(ctx context.Context, id string) (*models.BlogPost, error)
}

// ScheduleService configures the daily blog schedule.
type ScheduleService interface {
	Configure(ctx context.Context, schedule models.AutoBlogSchedule) (*models.ScheduleStatus, error)
	Status() *models.ScheduleStatus
	DefaultSchedule() models.AutoBlogSchedule
}

// StatusReporter reports liveness and credential status.
type StatusReporter interface {
	Health() models.Health
	APIStatus(ctx context.Context) models.APIStatus
}

// KeyStore manages API keys supplied at runtime.
type KeyStore interface {
	Set(ctx context.Context, name string, value string) (*kv.KeyInfo, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]kv.KeyInfo, error)
}
