package server

import (
	"net/http"

	"github.com/ternarybob/marketpulse/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Status
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api-status", s.app.StatusHandler.APIStatusHandler)

	// DhanHQ market data
	mux.HandleFunc("/dhanhq/sectors/analysis", s.app.MarketHandler.SectorAnalysisHandler)
	mux.HandleFunc("/dhanhq/security-ids", s.app.MarketHandler.SecurityIDsHandler)
	mux.HandleFunc("/dhanhq/quote", s.app.MarketHandler.QuoteHandler)
	mux.HandleFunc("/dhanhq/search", s.app.MarketHandler.SearchHandler)
	mux.HandleFunc("/dhanhq/trending", s.app.MarketHandler.TrendingHandler)
	mux.HandleFunc("/trending-stocks", s.app.MarketHandler.TrendingStocksHandler)

	// Research
	mux.HandleFunc("/alpha-vantage/technical", s.app.ResearchHandler.TechnicalsHandler)
	mux.HandleFunc("/news/stock", s.app.ResearchHandler.NewsHandler)
	mux.HandleFunc("/reddit/trending", s.app.ResearchHandler.RedditTrendingHandler)

	// Blog generation
	mux.HandleFunc("/openai/generate-blog", s.app.BlogHandler.GenerateStockBlogHandler)
	mux.HandleFunc("/trading-education/generate-blog", s.app.BlogHandler.GenerateEducationBlogHandler)
	mux.HandleFunc("/trading-education/topics", s.app.BlogHandler.TopicsHandler)
	mux.HandleFunc("/trading-education/auto-schedule", s.app.BlogHandler.AutoScheduleHandler)
	mux.HandleFunc("/trading-education/generate-daily", s.app.BlogHandler.GenerateDailyHandler)

	// Stored posts
	mux.HandleFunc("/trading-education/blogs", s.app.BlogHandler.ListBlogsHandler)
	mux.HandleFunc("/trading-education/blogs/", s.app.BlogHandler.GetBlogHandler)

	// Runtime API keys
	mux.HandleFunc("/settings/api-keys", s.app.SettingsHandler.APIKeysHandler)
	mux.HandleFunc("/settings/api-keys/", s.app.SettingsHandler.DeleteAPIKeyHandler)

	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "Not found: "+r.URL.Path)
}
