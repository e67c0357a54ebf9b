// Package sectors ranks NSE sectors and stocks from live marketfeed quotes.
//
// One analysis run fetches every instrument of the universe with bounded
// concurrency, skips instruments whose fetch fails, normalizes the rest,
// groups them by the static sector table and ranks sectors by a weighted score.
package sectors

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/universe"
)

const analysisCacheKey = "sectors:analysis"

// ErrNoData is returned when every fetch failed and FailOnEmpty is set.
var ErrNoData = errors.New("no market data available")

// QuoteFetcher fetches one marketfeed record by security id.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, securityID string) (*dhan.MarketFeedRecord, error)
}

// BatchQuoteFetcher also fetches many records in a single upstream call.
type BatchQuoteFetcher interface {
	QuoteFetcher
	FetchQuotes(ctx context.Context, securityIDs []string) (map[string]*dhan.MarketFeedRecord, error)
}

// credentialed is implemented by fetchers that know whether their upstream credential is set.
type credentialed interface {
	Configured() bool
}

// Analyzer runs the sector analysis pipeline.
type Analyzer struct {
	fetcher  QuoteFetcher
	universe *universe.Universe
	weights  Weights
	opts     Options
	cache    interfaces.ResponseCache
	cacheTTL time.Duration
	group    singleflight.Group
	now      func() time.Time
	logger   arbor.ILogger
}

// NewAnalyzer creates an analyzer over the given universe.
func NewAnalyzer(fetcher QuoteFetcher, u *universe.Universe, weights Weights, opts Options, logger arbor.ILogger) *Analyzer {
	return &Analyzer{
		fetcher:  fetcher,
		universe: u,
		weights:  weights,
		opts:     opts.withDefaults(),
		now:      time.Now,
		logger:   logger,
	}
}

// SetCache enables response caching for ttl. A nil cache or non-positive ttl disables it.
func (a *Analyzer) SetCache(cache interfaces.ResponseCache, ttl time.Duration) {
	a.cache = cache
	a.cacheTTL = ttl
}

// Analyze fetches the universe and returns the ranked sector analysis.
// A missing credential fails before any fetch. Concurrent calls share one run.
func (a *Analyzer) Analyze(ctx context.Context) (*models.SectorAnalysis, error) {
	if c, ok := a.fetcher.(credentialed); ok && !c.Configured() {
		return nil, models.NewConfigurationError("DhanHQ access token")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cached := a.fromCache(ctx); cached != nil {
		return cached, nil
	}

	// The shared run outlives any single caller; per-fetch timeouts still bound it.
	runCtx := context.WithoutCancel(ctx)
	ch := a.group.DoChan(analysisCacheKey, func() (interface{}, error) {
		return a.run(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			a.logger.Debug().Msg("Sector analysis shared with a concurrent request")
		}
		analysis := res.Val.(*models.SectorAnalysis)
		a.toCache(ctx, analysis)
		return analysis, nil
	}
}

func (a *Analyzer) run(ctx context.Context) (*models.SectorAnalysis, error) {
	start := time.Now()
	instruments := a.universe.Instruments()

	var records []*dhan.MarketFeedRecord
	if batcher, ok := a.fetcher.(BatchQuoteFetcher); ok && a.opts.Batch {
		records = a.fetchBatch(ctx, batcher, instruments)
	} else {
		records = a.fetchEach(ctx, instruments)
	}

	now := a.now()
	quotes := make([]models.Quote, 0, len(instruments))
	for i, rec := range records {
		if rec == nil {
			continue
		}
		quotes = append(quotes, NormalizeQuote(instruments[i], rec, now))
	}

	if len(quotes) == 0 {
		a.logger.Warn().Int("symbols", len(instruments)).Msg("Sector analysis: every quote fetch failed")
		if a.opts.FailOnEmpty {
			return nil, ErrNoData
		}
	}

	analysis := BuildAnalysis(quotes, a.weights, a.opts, now)

	a.logger.Info().
		Int("symbols", len(instruments)).
		Int("fetched", analysis.TotalStocks).
		Int("sectors", analysis.TotalSectors).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Sector analysis complete")

	return analysis, nil
}

// fetchEach fans out one FetchQuote per instrument. Each result lands in the
// slot of its instrument so completion order never affects the output.
func (a *Analyzer) fetchEach(ctx context.Context, instruments []universe.Instrument) []*dhan.MarketFeedRecord {
	records := make([]*dhan.MarketFeedRecord, len(instruments))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)

	for i, inst := range instruments {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
			defer cancel()

			rec, err := a.fetcher.FetchQuote(fetchCtx, inst.SecurityID)
			if err != nil {
				a.logger.Warn().
					Err(err).
					Str("security_id", inst.SecurityID).
					Str("symbol", inst.Symbol).
					Msg("Quote fetch failed, skipping symbol")
				return nil
			}
			records[i] = rec
			return nil
		})
	}

	_ = g.Wait()
	return records
}

// fetchBatch makes one upstream call for the whole universe. A failed call
// counts as every instrument failing.
func (a *Analyzer) fetchBatch(ctx context.Context, batcher BatchQuoteFetcher, instruments []universe.Instrument) []*dhan.MarketFeedRecord {
	records := make([]*dhan.MarketFeedRecord, len(instruments))

	ids := make([]string, len(instruments))
	for i, inst := range instruments {
		ids[i] = inst.SecurityID
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	byID, err := batcher.FetchQuotes(fetchCtx, ids)
	if err != nil {
		a.logger.Warn().Err(err).Int("symbols", len(ids)).Msg("Batch quote fetch failed")
		return records
	}

	for i, inst := range instruments {
		if rec, ok := byID[inst.SecurityID]; ok {
			records[i] = rec
		} else {
			a.logger.Warn().Str("security_id", inst.SecurityID).Msg("Security id missing from batch reply, skipping symbol")
		}
	}
	return records
}

func (a *Analyzer) fromCache(ctx context.Context) *models.SectorAnalysis {
	if a.cache == nil || a.cacheTTL <= 0 {
		return nil
	}

	data, err := a.cache.Get(ctx, analysisCacheKey)
	if err != nil {
		if !errors.Is(err, interfaces.ErrCacheMiss) {
			a.logger.Warn().Err(err).Msg("Sector analysis cache read failed")
		}
		return nil
	}

	var analysis models.SectorAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		a.logger.Warn().Err(err).Msg("Discarding undecodable cached sector analysis")
		return nil
	}
	return &analysis
}

func (a *Analyzer) toCache(ctx context.Context, analysis *models.SectorAnalysis) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(analysis)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to encode sector analysis for cache")
		return
	}
	if err := a.cache.Set(ctx, analysisCacheKey, data, a.cacheTTL); err != nil {
		a.logger.Warn().Err(err).Msg("Sector analysis cache write failed")
	}
}
