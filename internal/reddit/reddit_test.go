package reddit

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

func TestCountMentions(t *testing.T) {
	titles := []string{
		"GME to the moon",
		"gme and AMC with tendies",
		"Is $TSLA done? TSLA puts",
		"AMC for the win, GME",
	}

	mentions := CountMentions(titles, 3)

	require.Len(t, mentions, 3)
	assert.Equal(t, models.Mention{Symbol: "GME", Mentions: 3}, mentions[0])
	assert.Equal(t, models.Mention{Symbol: "AMC", Mentions: 2}, mentions[1])
	// "TO" appears once but before every other single mention
	assert.Equal(t, "TO", mentions[2].Symbol)
}

func TestCountMentions_Filters(t *testing.T) {
	mentions := CountMentions([]string{"THE AND OR FOR WITH", "NVIDIA $AAPL 123 ab1 moon!"}, 0)

	// NVIDIA is six letters, $AAPL and moon! carry punctuation, 123 and AB1 are not letters
	assert.Empty(t, mentions)
}

func TestCountMentions_Top(t *testing.T) {
	mentions := CountMentions([]string{"A B C D E F G H I J K L"}, DefaultTop)
	assert.Len(t, mentions, 10)
	assert.Equal(t, "A", mentions[0].Symbol)
}

func TestTrendingMentions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/wallstreetbets/hot.json", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"data":{"children":[{"data":{"title":"PLTR calls"}},{"data":{"title":"pltr again"}}]}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(rate.Inf, 1))

	mentions, err := client.TrendingMentions(context.Background(), DefaultTop)
	require.NoError(t, err)
	require.Len(t, mentions, 3)
	assert.Equal(t, models.Mention{Symbol: "PLTR", Mentions: 2}, mentions[0])
}

func TestHotTitles_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSubreddit("stocks"), WithRateLimit(rate.Inf, 1))

	_, err := client.HotTitles(context.Background())
	var upstreamErr *models.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Equal(t, "/r/stocks/hot.json", upstreamErr.Endpoint)
}
