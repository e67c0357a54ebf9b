package dhan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// LegacyQuote is a record from the v1 quote and instrument search endpoints.
type LegacyQuote struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"lastPrice"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	EPS           float64 `json:"eps"`
	CompanyName   string  `json:"companyName"`
	Sector        string  `json:"sector"`
	Exchange      string  `json:"exchange"`
}

type quoteResponse struct {
	Data []LegacyQuote `json:"data"`
}

type searchResponse struct {
	Results []LegacyQuote `json:"results"`
}

// Quote retrieves the v1 quote for a ticker. An empty data array is ErrRecordNotFound.
func (c *Client) Quote(ctx context.Context, symbol string) (*LegacyQuote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	body, err := c.do(ctx, http.MethodGet, "/quotes/v1/quote", params, nil, c.Configured())
	if err != nil {
		return nil, err
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("symbol %s: %w", symbol, ErrRecordNotFound)
	}

	quote := result.Data[0]
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return &quote, nil
}

// Search looks up instruments matching query.
func (c *Client) Search(ctx context.Context, query string) ([]LegacyQuote, error) {
	params := url.Values{}
	params.Set("query", query)

	body, err := c.do(ctx, http.MethodGet, "/instruments/v1/search", params, nil, c.Configured())
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if result.Results == nil {
		result.Results = []LegacyQuote{}
	}
	return result.Results, nil
}
