// Package alphavantage fetches daily RSI and MACD indicators from Alpha Vantage.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ternarybob/marketpulse/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the Alpha Vantage API.
	DefaultBaseURL = "https://www.alphavantage.co"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	serviceName = "Alpha Vantage"
	queryPath   = "/query"
)

// DefaultRateLimit matches the free tier: 5 requests per minute.
var DefaultRateLimit = rate.Every(12 * time.Second)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Technicals is the RSI and MACD documents for one symbol, passed through as returned.
type Technicals struct {
	Symbol    string          `json:"symbol"`
	RSI       json.RawMessage `json:"rsi"`
	MACD      json.RawMessage `json:"macd"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client is an Alpha Vantage API client.
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

// NewClient creates a new Alpha Vantage API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(DefaultRateLimit, 5),
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

// Technicals fetches the daily RSI(14) and MACD of symbol concurrently.
func (c *Client) Technicals(ctx context.Context, symbol string) (*Technicals, error) {
	if !c.Configured() {
		return nil, models.NewConfigurationError("Alpha Vantage API key")
	}

	result := &Technicals{Symbol: symbol}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := url.Values{}
		params.Set("function", "RSI")
		params.Set("symbol", symbol)
		params.Set("interval", "daily")
		params.Set("time_period", "14")
		params.Set("series_type", "close")

		body, err := c.query(gctx, params)
		if err != nil {
			return fmt.Errorf("RSI: %w", err)
		}
		result.RSI = body
		return nil
	})
	g.Go(func() error {
		params := url.Values{}
		params.Set("function", "MACD")
		params.Set("symbol", symbol)
		params.Set("interval", "daily")
		params.Set("series_type", "close")

		body, err := c.query(gctx, params)
		if err != nil {
			return fmt.Errorf("MACD: %w", err)
		}
		result.MACD = body
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Timestamp = time.Now()
	return result, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.RateLimitError{Service: serviceName, RetryAfter: 12 * time.Second}
	}

	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, queryPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("function", params.Get("function")).Str("symbol", params.Get("symbol")).Msg("Alpha Vantage API request")
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

	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: string(body), Endpoint: queryPath}
	}
	if !gjson.ValidBytes(body) {
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: "invalid JSON", Endpoint: queryPath}
	}
	// Alpha Vantage reports bad symbols and functions with a 200 and an "Error Message" field
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: msg.String(), Endpoint: queryPath}
	}

	return json.RawMessage(body), nil
}
