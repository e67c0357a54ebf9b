package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/services/sectors"
	"github.com/ternarybob/marketpulse/internal/universe"
)

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context) (*models.SectorAnalysis, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context) (*models.SectorAnalysis, error) {
	return m.analyzeFunc(ctx)
}

type mockQuoteService struct {
	configured bool
	quoteFunc  func(ctx context.Context, symbol string) (*dhan.LegacyQuote, error)
	searchFunc func(ctx context.Context, query string) ([]dhan.LegacyQuote, error)
}

func (m *mockQuoteService) Configured() bool { return m.configured }

func (m *mockQuoteService) Quote(ctx context.Context, symbol string) (*dhan.LegacyQuote, error) {
	if m.quoteFunc != nil {
		return m.quoteFunc(ctx, symbol)
	}
	return nil, dhan.ErrRecordNotFound
}

func (m *mockQuoteService) Search(ctx context.Context, query string) ([]dhan.LegacyQuote, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return []dhan.LegacyQuote{}, nil
}

type mockTrending struct {
	stocks *models.TrendingStocks
	err    error
}

func (m *mockTrending) Trending(ctx context.Context) (*models.TrendingStocks, error) {
	return m.stocks, m.err
}

var fixedTime = time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC)

func newTestMarketHandler(analyzer SectorAnalyzer, quotes QuoteService, trendingService TrendingService) *MarketHandler {
	h := NewMarketHandler(analyzer, quotes, trendingService, universe.Default(), arbor.NewLogger())
	h.now = func() time.Time { return fixedTime }
	return h
}

func TestSectorAnalysisHandler_Success(t *testing.T) {
	analysis := &models.SectorAnalysis{
		TopStocks:     []models.Quote{},
		TopSectors:    []models.SectorPerformance{{Sector: "Technology", PerformanceScore: 1.26, StockCount: 3}},
		AllSectorData: []models.SectorPerformance{{Sector: "Technology", PerformanceScore: 1.26, StockCount: 3}},
		TopGainers:    []models.Quote{},
		TotalStocks:   3,
		TotalSectors:  1,
		Timestamp:     fixedTime,
	}
	h := newTestMarketHandler(&mockAnalyzer{analyzeFunc: func(ctx context.Context) (*models.SectorAnalysis, error) {
		return analysis, nil
	}}, &mockQuoteService{}, &mockTrending{})

	rec := httptest.NewRecorder()
	h.SectorAnalysisHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/sectors/analysis", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["totalStocks"])
	assert.EqualValues(t, 1, body["totalSectors"])
	assert.Equal(t, []interface{}{}, body["topStocks"])
	assert.Equal(t, "2025-08-01T10:30:00Z", body["timestamp"])
}

func TestSectorAnalysisHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"missing token", models.NewConfigurationError("dhan_access_token"), http.StatusBadRequest},
		{"no data", sectors.ErrNoData, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestMarketHandler(&mockAnalyzer{analyzeFunc: func(ctx context.Context) (*models.SectorAnalysis, error) {
				return nil, tt.err
			}}, &mockQuoteService{}, &mockTrending{})

			rec := httptest.NewRecorder()
			h.SectorAnalysisHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/sectors/analysis", nil))

			assert.Equal(t, tt.expected, rec.Code)
			assert.Equal(t, "error", decodeBody(t, rec)["status"])
		})
	}
}

func TestSectorAnalysisHandler_MethodNotAllowed(t *testing.T) {
	h := newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{}, &mockTrending{})

	rec := httptest.NewRecorder()
	h.SectorAnalysisHandler(rec, httptest.NewRequest(http.MethodGet, "/dhanhq/sectors/analysis", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSecurityIDsHandler(t *testing.T) {
	h := newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{configured: false}, &mockTrending{})

	rec := httptest.NewRecorder()
	h.SecurityIDsHandler(rec, httptest.NewRequest(http.MethodGet, "/dhanhq/security-ids", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DhanHQ access token not configured", decodeBody(t, rec)["error"])

	h = newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{configured: true}, &mockTrending{})
	rec = httptest.NewRecorder()
	h.SecurityIDsHandler(rec, httptest.NewRequest(http.MethodGet, "/dhanhq/security-ids", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 20, body["totalStocks"])
	ids, ok := body["securityIds"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "500325", ids["RELIANCE"])
}

func TestQuoteHandler(t *testing.T) {
	quotes := &mockQuoteService{quoteFunc: func(ctx context.Context, symbol string) (*dhan.LegacyQuote, error) {
		assert.Equal(t, "TCS", symbol)
		return &dhan.LegacyQuote{LastPrice: 3500, Change: 35, ChangePercent: 1.01, CompanyName: "Tata Consultancy Services"}, nil
	}}
	h := newTestMarketHandler(&mockAnalyzer{}, quotes, &mockTrending{})

	rec := httptest.NewRecorder()
	h.QuoteHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/quote", strings.NewReader(`{"symbol":"TCS"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "TCS", body["symbol"])
	assert.EqualValues(t, 3500, body["price"])
	assert.Equal(t, "Tata Consultancy Services", body["companyName"])
}

func TestQuoteHandler_NotFoundAndValidation(t *testing.T) {
	h := newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{}, &mockTrending{})

	rec := httptest.NewRecorder()
	h.QuoteHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/quote", strings.NewReader(`{"symbol":"NOPE"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.QuoteHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/quote", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler(t *testing.T) {
	quotes := &mockQuoteService{searchFunc: func(ctx context.Context, query string) ([]dhan.LegacyQuote, error) {
		assert.Equal(t, "tata", query)
		return []dhan.LegacyQuote{
			{Symbol: "TCS", LastPrice: 3500},
			{Symbol: "TATAMOTORS", LastPrice: 950},
		}, nil
	}}
	h := newTestMarketHandler(&mockAnalyzer{}, quotes, &mockTrending{})

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/search", strings.NewReader(`{"query":"tata"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	results, ok := decodeBody(t, rec)["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "TATAMOTORS", results[1].(map[string]interface{})["symbol"])
}

func TestSearchHandler_EmptyResults(t *testing.T) {
	h := newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{}, &mockTrending{})

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, rec)["results"])
}

func TestTrendingStocksHandler(t *testing.T) {
	trendingService := &mockTrending{stocks: &models.TrendingStocks{
		Stocks: []models.StockSnapshot{
			{Symbol: "SBIN", ChangePercent: -3.2},
			{Symbol: "TCS", ChangePercent: 2.1},
			{Symbol: "ITC", ChangePercent: 0.4},
		},
		Total:  3,
		Source: "dhanhq",
	}}
	h := newTestMarketHandler(&mockAnalyzer{}, &mockQuoteService{}, trendingService)

	rec := httptest.NewRecorder()
	h.TrendingStocksHandler(rec, httptest.NewRequest(http.MethodPost, "/trending-stocks", strings.NewReader(`{"limit":2}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	stocks, ok := body["trending_stocks"].([]interface{})
	require.True(t, ok)
	assert.Len(t, stocks, 2)
	assert.Equal(t, []interface{}{"dhanhq"}, body["sources"])

	rec = httptest.NewRecorder()
	h.TrendingHandler(rec, httptest.NewRequest(http.MethodPost, "/dhanhq/trending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decodeBody(t, rec)["total"])
}
