package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/alphavantage"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/handlers"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/newsapi"
	"github.com/ternarybob/marketpulse/internal/reddit"
	"github.com/ternarybob/marketpulse/internal/services/blog"
	"github.com/ternarybob/marketpulse/internal/services/kv"
	"github.com/ternarybob/marketpulse/internal/services/llm"
	"github.com/ternarybob/marketpulse/internal/services/scheduler"
	"github.com/ternarybob/marketpulse/internal/services/sectors"
	"github.com/ternarybob/marketpulse/internal/services/status"
	"github.com/ternarybob/marketpulse/internal/services/trending"
	"github.com/ternarybob/marketpulse/internal/storage"
	"github.com/ternarybob/marketpulse/internal/universe"
)

// StockBlogModel is used for stock posts when OpenAI is the default provider
const StockBlogModel = "gpt-3.5-turbo"

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	Universe       *universe.Universe

	// Upstream clients
	DhanClient         *dhan.Client
	AlphaVantageClient *alphavantage.Client
	NewsClient         *newsapi.Client
	RedditClient       *reddit.Client

	// Services
	SectorAnalyzer   *sectors.Analyzer
	TrendingService  *trending.Service
	LLMService       *llm.ProviderFactory
	BlogService      *blog.Service
	SchedulerService *scheduler.Service
	StatusService    *status.Service
	KeyService       *kv.Service

	// HTTP handlers
	StatusHandler   *handlers.StatusHandler
	MarketHandler   *handlers.MarketHandler
	ResearchHandler *handlers.ResearchHandler
	BlogHandler     *handlers.BlogHandler
	SettingsHandler *handlers.SettingsHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initUniverse(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load universe: %w", err)
	}

	app.initClients(ctx)
	app.initServices()
	app.initHandlers()

	logger.Info().
		Int("instruments", len(app.Universe.Instruments())).
		Bool("dhan_configured", app.DhanClient.Configured()).
		Str("llm_provider", string(app.LLMService.DefaultProvider())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger plus the optional response cache)
func (a *App) initDatabase(ctx context.Context) error {
	storageManager, err := storage.NewStorageManager(ctx, a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initUniverse loads the instrument tables from file, or the built-in defaults
func (a *App) initUniverse() error {
	if a.Config.Universe.File == "" {
		a.Universe = universe.Default()
		return nil
	}

	u, err := universe.LoadFile(a.Config.Universe.File)
	if err != nil {
		return err
	}
	a.Universe = u
	a.Logger.Info().Str("file", a.Config.Universe.File).Msg("Universe loaded from file")
	return nil
}

// initClients creates the upstream API clients. Missing keys leave a client unconfigured;
// its calls then fail with a ConfigurationError.
func (a *App) initClients(ctx context.Context) {
	cfg := a.Config
	kvStore := a.StorageManager.KeyValueStorage()

	a.DhanClient = dhan.NewClient(
		a.resolveKey(ctx, kvStore, "dhan_access_token", cfg.Dhan.AccessToken),
		dhan.WithBaseURL(cfg.Dhan.BaseURL),
		dhan.WithTimeout(common.ParseDuration(cfg.Dhan.Timeout, dhan.DefaultTimeout)),
		dhan.WithRateLimit(cfg.Dhan.RateLimit, dhan.DefaultBurst),
		dhan.WithLogger(a.Logger),
	)

	a.AlphaVantageClient = alphavantage.NewClient(
		a.resolveKey(ctx, kvStore, "alpha_vantage_api_key", cfg.AlphaVantage.APIKey),
		alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
		alphavantage.WithHTTPClient(&http.Client{Timeout: common.ParseDuration(cfg.AlphaVantage.Timeout, 30*time.Second)}),
		alphavantage.WithLogger(a.Logger),
	)

	a.NewsClient = newsapi.NewClient(
		a.resolveKey(ctx, kvStore, "news_api_key", cfg.NewsAPI.APIKey),
		newsapi.WithBaseURL(cfg.NewsAPI.BaseURL),
		newsapi.WithHTTPClient(&http.Client{Timeout: common.ParseDuration(cfg.NewsAPI.Timeout, 30*time.Second)}),
		newsapi.WithLogger(a.Logger),
	)

	a.RedditClient = reddit.NewClient(
		reddit.WithBaseURL(cfg.Reddit.BaseURL),
		reddit.WithSubreddit(cfg.Reddit.Subreddit),
		reddit.WithUserAgent(cfg.Reddit.UserAgent),
		reddit.WithLimit(cfg.Reddit.Limit),
		reddit.WithHTTPClient(&http.Client{Timeout: common.ParseDuration(cfg.Reddit.Timeout, 30*time.Second)}),
		reddit.WithLogger(a.Logger),
	)
}

// resolveKey returns the key for name, or "" when it is configured nowhere
func (a *App) resolveKey(ctx context.Context, kvStore interfaces.KeyValueReader, name, fallback string) string {
	key, err := common.ResolveAPIKey(ctx, kvStore, name, fallback)
	if err != nil {
		a.Logger.Warn().Str("key", name).Msg("API key not configured")
		return ""
	}
	return key
}

// initServices creates the domain services
func (a *App) initServices() {
	cfg := a.Config
	kvStore := a.StorageManager.KeyValueStorage()

	weights, opts := sectors.FromConfig(cfg.Sectors)
	a.SectorAnalyzer = sectors.NewAnalyzer(a.DhanClient, a.Universe, weights, opts, a.Logger)
	if ttl := common.ParseDuration(cfg.Cache.TTL, 0); ttl > 0 {
		a.SectorAnalyzer.SetCache(a.StorageManager.Cache(), ttl)
		a.Logger.Debug().Str("ttl", ttl.String()).Msg("Sector analysis caching enabled")
	}

	a.TrendingService = trending.NewService(a.DhanClient, a.Universe, a.Logger)

	a.LLMService = llm.NewProviderFactory(cfg, kvStore, a.Logger)

	blogOpts := blog.Options{}
	if a.LLMService.DefaultProvider() == llm.ProviderOpenAI {
		blogOpts.StockModel = StockBlogModel
	}
	a.BlogService = blog.NewService(a.LLMService, a.StorageManager.BlogStorage(), blogOpts, a.Logger)

	a.SchedulerService = scheduler.NewService(a.BlogService, kvStore, cfg.Scheduler, a.Logger)

	a.StatusService = status.NewService(cfg, kvStore, a.Logger)
	a.KeyService = kv.NewService(kvStore, a.Logger)
}

// initHandlers creates the HTTP handlers
func (a *App) initHandlers() {
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
	a.MarketHandler = handlers.NewMarketHandler(a.SectorAnalyzer, a.DhanClient, a.TrendingService, a.Universe, a.Logger)
	a.ResearchHandler = handlers.NewResearchHandler(a.AlphaVantageClient, a.NewsClient, a.RedditClient, a.Logger)
	a.BlogHandler = handlers.NewBlogHandler(a.BlogService, a.SchedulerService, a.Logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.KeyService, a.Logger)
}

// Close stops the scheduler and closes all resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
