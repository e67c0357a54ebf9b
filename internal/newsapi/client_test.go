package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ternarybob/marketpulse/internal/models"
)

func TestStockNews(t *testing.T) {
	var gotPageSize string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "TCS", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		gotPageSize = q.Get("pageSize")

		_, _ = w.Write([]byte(`{"status":"ok","totalResults":42,"articles":[{"source":{"id":null,"name":"Mint"},"title":"TCS wins deal","url":"https://example.com/a","publishedAt":"2026-01-01T10:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL), WithRateLimit(rate.Inf, 1))

	news, err := client.StockNews(context.Background(), "TCS", 0)
	require.NoError(t, err)
	assert.Equal(t, "10", gotPageSize)
	assert.Equal(t, "TCS", news.Symbol)
	assert.Equal(t, 42, news.TotalResults)
	require.Len(t, news.Articles, 1)
	assert.Equal(t, "Mint", news.Articles[0].Source.Name)
	assert.Nil(t, news.Articles[0].Source.ID)

	_, err = client.StockNews(context.Background(), "TCS", 500)
	require.NoError(t, err)
	assert.Equal(t, "100", gotPageSize)
}

func TestStockNews_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
	}))
	defer server.Close()

	client := NewClient("bad", WithBaseURL(server.URL), WithRateLimit(rate.Inf, 1))

	_, err := client.StockNews(context.Background(), "TCS", 5)
	var upstreamErr *models.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.Equal(t, "Your API key is invalid.", upstreamErr.Message)
}

func TestStockNews_NotConfigured(t *testing.T) {
	_, err := NewClient("").StockNews(context.Background(), "TCS", 5)
	assert.ErrorIs(t, err, models.ErrNotConfigured)
}
