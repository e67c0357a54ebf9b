package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/services/trending"
	"github.com/ternarybob/marketpulse/internal/universe"
)

// MarketHandler serves the DhanHQ backed endpoints
type MarketHandler struct {
	analyzer SectorAnalyzer
	quotes   QuoteService
	trending TrendingService
	universe *universe.Universe
	logger   arbor.ILogger
	now      func() time.Time
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(analyzer SectorAnalyzer, quotes QuoteService, trendingService TrendingService, u *universe.Universe, logger arbor.ILogger) *MarketHandler {
	return &MarketHandler{
		analyzer: analyzer,
		quotes:   quotes,
		trending: trendingService,
		universe: u,
		logger:   logger,
		now:      time.Now,
	}
}

type symbolRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type trendingStocksRequest struct {
	Limit int `json:"limit" validate:"gte=0"`
}

// SectorAnalysisHandler handles POST /dhanhq/sectors/analysis
func (h *MarketHandler) SectorAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Sector analysis")
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}

// SecurityIDsHandler handles GET /dhanhq/security-ids
func (h *MarketHandler) SecurityIDsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if !h.quotes.Configured() {
		writeServiceError(w, h.logger, models.NewConfigurationError("DhanHQ access token"), "Security ids")
		return
	}

	ids := h.universe.SecurityIDs()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"securityIds": ids,
		"totalStocks": len(ids),
		"timestamp":   h.now(),
	})
}

// QuoteHandler handles POST /dhanhq/quote
func (h *MarketHandler) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req symbolRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Quote")
		return
	}

	quote, err := h.quotes.Quote(r.Context(), req.Symbol)
	if err != nil {
		writeServiceError(w, h.logger, err, "Quote")
		return
	}

	WriteJSON(w, http.StatusOK, trending.Snapshot(req.Symbol, *quote, h.now()))
}

// SearchHandler handles POST /dhanhq/search
func (h *MarketHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req searchRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Search")
		return
	}

	items, err := h.quotes.Search(r.Context(), req.Query)
	if err != nil {
		writeServiceError(w, h.logger, err, "Search")
		return
	}

	now := h.now()
	results := make([]models.StockSnapshot, 0, len(items))
	for _, item := range items {
		results = append(results, trending.Snapshot(item.Symbol, item, now))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// TrendingHandler handles POST /dhanhq/trending
func (h *MarketHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	stocks, err := h.trending.Trending(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Trending")
		return
	}

	WriteJSON(w, http.StatusOK, stocks)
}

// TrendingStocksHandler handles POST /trending-stocks. A positive limit truncates the ranking.
func (h *MarketHandler) TrendingStocksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req trendingStocksRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Trending stocks")
		return
	}

	stocks, err := h.trending.Trending(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Trending stocks")
		return
	}

	list := stocks.Stocks
	if req.Limit > 0 && len(list) > req.Limit {
		list = list[:req.Limit]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trending_stocks": list,
		"sources":         []string{trending.Source},
		"timestamp":       h.now(),
	})
}
