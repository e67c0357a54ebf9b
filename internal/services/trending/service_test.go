package trending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/universe"
)

type stubQuotes struct {
	quotes map[string]dhan.LegacyQuote
	calls  []string
}

func (s *stubQuotes) Quote(ctx context.Context, symbol string) (*dhan.LegacyQuote, error) {
	s.calls = append(s.calls, symbol)
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, errors.New("not found")
	}
	return &q, nil
}

func testUniverse(t *testing.T) *universe.Universe {
	t.Helper()
	u, err := universe.New([]universe.Instrument{{SecurityID: "1", Symbol: "A"}}, nil, []string{"AAA", "BBB", "CCC", "DDD"})
	require.NoError(t, err)
	return u
}

func TestTrending_SortsByAbsoluteMove(t *testing.T) {
	quotes := &stubQuotes{quotes: map[string]dhan.LegacyQuote{
		"AAA": {LastPrice: 10, ChangePercent: 1.5},
		"BBB": {LastPrice: 20, ChangePercent: -4.2, CompanyName: "Bravo"},
		"DDD": {LastPrice: 30, ChangePercent: 0.1},
	}}
	svc := NewService(quotes, testUniverse(t), arbor.NewLogger())
	fixed := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	result, err := svc.Trending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, quotes.calls)
	require.Equal(t, 3, result.Total)
	assert.Equal(t, "BBB", result.Stocks[0].Symbol)
	assert.Equal(t, "Bravo", result.Stocks[0].CompanyName)
	assert.Equal(t, "AAA", result.Stocks[1].Symbol)
	assert.Equal(t, "DDD", result.Stocks[2].Symbol)
	assert.Equal(t, Source, result.Source)
	assert.Equal(t, fixed, result.Timestamp)
}

func TestTrending_AllFailed(t *testing.T) {
	svc := NewService(&stubQuotes{}, testUniverse(t), arbor.NewLogger())

	result, err := svc.Trending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.NotNil(t, result.Stocks)
}

func TestTrending_Cancelled(t *testing.T) {
	svc := NewService(&stubQuotes{}, testUniverse(t), arbor.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Trending(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot(t *testing.T) {
	now := time.Now()
	s := Snapshot("tcs", dhan.LegacyQuote{LastPrice: 4100, PERatio: 30, Exchange: "NSE"}, now)
	assert.Equal(t, "tcs", s.Symbol)
	assert.Equal(t, 30.0, s.PERatio)
	assert.Equal(t, "NSE", s.Exchange)

	s = Snapshot("tcs", dhan.LegacyQuote{Symbol: "TCS"}, now)
	assert.Equal(t, "TCS", s.Symbol)
}
