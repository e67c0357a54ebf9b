package dhan

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/ternarybob/marketpulse/internal/models"
)

const (
	marketFeedQuotePath = "/v2/marketfeed/quote"
	segmentNSEEquity    = "NSE_EQ"
)

// ErrRecordNotFound is returned when the upstream reply has no record for an instrument.
var ErrRecordNotFound = fmt.Errorf("DhanHQ record %w", models.ErrNotFound)

// OHLC is the day's open/high/low and the previous close.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// MarketFeedRecord is one instrument from the marketfeed quote reply.
// Missing or malformed numbers decode as 0.
type MarketFeedRecord struct {
	SecurityID   string  `json:"security_id"`
	LastPrice    float64 `json:"last_price"`
	NetChange    float64 `json:"net_change"`
	Volume       float64 `json:"volume"`
	AveragePrice float64 `json:"average_price"`
	OHLC         OHLC    `json:"ohlc"`
}

// FetchQuote fetches the marketfeed quote of a single NSE equity.
func (c *Client) FetchQuote(ctx context.Context, securityID string) (*MarketFeedRecord, error) {
	records, err := c.FetchQuotes(ctx, []string{securityID})
	if err != nil {
		return nil, err
	}
	record, ok := records[securityID]
	if !ok {
		return nil, fmt.Errorf("security id %s: %w", securityID, ErrRecordNotFound)
	}
	return record, nil
}

// FetchQuotes fetches many NSE equities in one marketfeed call. Ids absent
// from the reply are absent from the returned map.
func (c *Client) FetchQuotes(ctx context.Context, securityIDs []string) (map[string]*MarketFeedRecord, error) {
	if !c.Configured() {
		return nil, models.NewConfigurationError("DhanHQ access token")
	}

	ids := make([]int64, 0, len(securityIDs))
	for _, id := range securityIDs {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid security id %q: %w", id, err)
		}
		ids = append(ids, n)
	}

	body, err := c.do(ctx, http.MethodPost, marketFeedQuotePath, nil, map[string][]int64{segmentNSEEquity: ids}, true)
	if err != nil {
		return nil, err
	}

	return decodeMarketFeed(body)
}

func decodeMarketFeed(body []byte) (map[string]*MarketFeedRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, &models.UpstreamError{
			Service:    serviceName,
			StatusCode: http.StatusOK,
			Message:    "invalid JSON in marketfeed reply",
			Endpoint:   marketFeedQuotePath,
		}
	}

	reply := gjson.ParseBytes(body)
	if status := reply.Get("status").String(); status == "failure" {
		return nil, &models.UpstreamError{
			Service:    serviceName,
			StatusCode: http.StatusOK,
			Message:    reply.Get("remarks").String(),
			Endpoint:   marketFeedQuotePath,
		}
	}

	records := make(map[string]*MarketFeedRecord)
	reply.Get("data." + segmentNSEEquity).ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		id := key.String()
		records[id] = &MarketFeedRecord{
			SecurityID:   id,
			LastPrice:    value.Get("last_price").Float(),
			NetChange:    value.Get("net_change").Float(),
			Volume:       value.Get("volume").Float(),
			AveragePrice: value.Get("average_price").Float(),
			OHLC: OHLC{
				Open:  value.Get("ohlc.open").Float(),
				High:  value.Get("ohlc.high").Float(),
				Low:   value.Get("ohlc.low").Float(),
				Close: value.Get("ohlc.close").Float(),
			},
		}
		return true
	})

	return records, nil
}
