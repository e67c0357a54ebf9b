package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/reddit"
)

// ResearchHandler serves technicals, news and social mentions
type ResearchHandler struct {
	technicals TechnicalsClient
	news       NewsClient
	mentions   MentionsClient
	logger     arbor.ILogger
	now        func() time.Time
}

// NewResearchHandler creates a new ResearchHandler
func NewResearchHandler(technicals TechnicalsClient, news NewsClient, mentions MentionsClient, logger arbor.ILogger) *ResearchHandler {
	return &ResearchHandler{
		technicals: technicals,
		news:       news,
		mentions:   mentions,
		logger:     logger,
		now:        time.Now,
	}
}

type newsRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

// TechnicalsHandler handles POST /alpha-vantage/technical
func (h *ResearchHandler) TechnicalsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req symbolRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Technicals")
		return
	}

	technicals, err := h.technicals.Technicals(r.Context(), req.Symbol)
	if err != nil {
		writeServiceError(w, h.logger, err, "Technicals")
		return
	}

	WriteJSON(w, http.StatusOK, technicals)
}

// NewsHandler handles POST /news/stock
func (h *ResearchHandler) NewsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req newsRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err, "Stock news")
		return
	}

	news, err := h.news.StockNews(r.Context(), req.Symbol, req.Limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "Stock news")
		return
	}

	WriteJSON(w, http.StatusOK, news)
}

// RedditTrendingHandler handles POST /reddit/trending
func (h *ResearchHandler) RedditTrendingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	mentions, err := h.mentions.TrendingMentions(r.Context(), reddit.DefaultTop)
	if err != nil {
		writeServiceError(w, h.logger, err, "Reddit trending")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trending_stocks": mentions,
		"timestamp":       h.now(),
	})
}
