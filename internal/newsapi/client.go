// Package newsapi searches recent English-language articles on NewsAPI.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/marketpulse/internal/models"
)

const (
	// DefaultBaseURL is the base URL for NewsAPI.
	DefaultBaseURL = "https://newsapi.org"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultLimit is the page size when the caller asks for none.
	DefaultLimit = 10

	// MaxLimit is the largest page NewsAPI serves.
	MaxLimit = 100

	serviceName    = "NewsAPI"
	everythingPath = "/v2/everything"
)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source identifies the publisher of an article.
type Source struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// Article is one NewsAPI search hit.
type Article struct {
	Source      Source  `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
}

// StockNews is the news endpoint response.
type StockNews struct {
	Symbol       string    `json:"symbol"`
	Articles     []Article `json:"articles"`
	TotalResults int       `json:"total_results"`
	Timestamp    time.Time `json:"timestamp"`
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Client is a NewsAPI client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewClient creates a new NewsAPI client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// StockNews returns the newest articles mentioning symbol. limit is clamped to 1..MaxLimit,
// with 0 meaning DefaultLimit.
func (c *Client) StockNews(ctx context.Context, symbol string, limit int) (*StockNews, error) {
	if !c.Configured() {
		return nil, models.NewConfigurationError("News API key")
	}

	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.RateLimitError{Service: serviceName, RetryAfter: time.Second}
	}

	params := url.Values{}
	params.Set("q", symbol)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+everythingPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("symbol", symbol).Int("limit", limit).Msg("NewsAPI request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result everythingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: string(body), Endpoint: everythingPath}
	}
	if resp.StatusCode != http.StatusOK || result.Status == "error" {
		msg := result.Message
		if msg == "" {
			msg = string(body)
		}
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: msg, Endpoint: everythingPath}
	}

	if result.Articles == nil {
		result.Articles = []Article{}
	}

	return &StockNews{
		Symbol:       symbol,
		Articles:     result.Articles,
		TotalResults: result.TotalResults,
		Timestamp:    time.Now(),
	}, nil
}
