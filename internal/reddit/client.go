// Package reddit reads hot subreddit posts and counts ticker-like words in their titles.
package reddit

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
	// DefaultBaseURL is the base URL for Reddit's public JSON listings.
	DefaultBaseURL = "https://www.reddit.com"

	// DefaultSubreddit is scanned for mentions.
	DefaultSubreddit = "wallstreetbets"

	// DefaultLimit is the number of hot posts read.
	DefaultLimit = 25

	// DefaultUserAgent identifies the service; Reddit throttles generic agents.
	DefaultUserAgent = "marketpulse/1.0"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	serviceName = "Reddit"
)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title string `json:"title"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Client reads one subreddit's hot listing.
type Client struct {
	baseURL    string
	subreddit  string
	userAgent  string
	limit      int
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

// WithSubreddit sets the subreddit scanned for mentions.
func WithSubreddit(subreddit string) ClientOption {
	return func(c *Client) {
		if subreddit != "" {
			c.subreddit = subreddit
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithLimit sets how many hot posts are read.
func WithLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
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

// NewClient creates a new Reddit listing client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		subreddit:  DefaultSubreddit,
		userAgent:  DefaultUserAgent,
		limit:      DefaultLimit,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HotTitles returns the titles of the subreddit's hot posts.
func (c *Client) HotTitles(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.RateLimitError{Service: serviceName, RetryAfter: time.Second}
	}

	path := fmt.Sprintf("/r/%s/hot.json", url.PathEscape(c.subreddit))
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("subreddit", c.subreddit).Int("limit", c.limit).Msg("Reddit listing request")
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
		return nil, &models.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}

	var result listing
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	titles := make([]string, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		titles = append(titles, child.Data.Title)
	}
	return titles, nil
}

// TrendingMentions reads the hot listing and returns the top counted mentions.
func (c *Client) TrendingMentions(ctx context.Context, top int) ([]models.Mention, error) {
	titles, err := c.HotTitles(ctx)
	if err != nil {
		return nil, err
	}
	return CountMentions(titles, top), nil
}
