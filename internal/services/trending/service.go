// Package trending ranks the popular tickers by the size of today's move.
package trending

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/universe"
)

// Source is "dhanhq" for every ranking this service builds
const Source = "dhanhq"

// QuoteSource fetches the v1 quote of a ticker.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*dhan.LegacyQuote, error)
}

// Service builds the popular-stock volatility ranking.
type Service struct {
	quotes   QuoteSource
	universe *universe.Universe
	logger   arbor.ILogger
	now      func() time.Time
}

func NewService(quotes QuoteSource, u *universe.Universe, logger arbor.ILogger) *Service {
	return &Service{
		quotes:   quotes,
		universe: u,
		logger:   logger,
		now:      time.Now,
	}
}

// Trending quotes every popular ticker in turn, skipping failures, and sorts by |changePercent| descending.
func (s *Service) Trending(ctx context.Context) (*models.TrendingStocks, error) {
	popular := s.universe.Popular()
	now := s.now()
	stocks := make([]models.StockSnapshot, 0, len(popular))

	for _, symbol := range popular {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q, err := s.quotes.Quote(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Trending quote failed, skipping symbol")
			continue
		}

		stocks = append(stocks, models.StockSnapshot{
			Symbol:        symbol,
			Price:         q.LastPrice,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
			MarketCap:     q.MarketCap,
			CompanyName:   q.CompanyName,
			Sector:        q.Sector,
			Timestamp:     now,
		})
	}

	sort.SliceStable(stocks, func(i, j int) bool {
		return math.Abs(stocks[i].ChangePercent) > math.Abs(stocks[j].ChangePercent)
	})

	s.logger.Debug().Int("symbols", len(popular)).Int("quoted", len(stocks)).Msg("Trending ranking built")

	return &models.TrendingStocks{
		Stocks:    stocks,
		Total:     len(stocks),
		Source:    Source,
		Timestamp: now,
	}, nil
}

// Snapshot converts a legacy quote into the snapshot shape used by the quote and search endpoints.
func Snapshot(symbol string, q dhan.LegacyQuote, now time.Time) models.StockSnapshot {
	if q.Symbol != "" {
		symbol = q.Symbol
	}
	return models.StockSnapshot{
		Symbol:        symbol,
		Price:         q.LastPrice,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		MarketCap:     q.MarketCap,
		PERatio:       q.PERatio,
		EPS:           q.EPS,
		CompanyName:   q.CompanyName,
		Sector:        q.Sector,
		Exchange:      q.Exchange,
		Timestamp:     now,
	}
}
