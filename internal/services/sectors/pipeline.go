package sectors

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ternarybob/marketpulse/internal/dhan"
	"github.com/ternarybob/marketpulse/internal/models"
	"github.com/ternarybob/marketpulse/internal/universe"
)

var hundred = decimal.NewFromInt(100)

// SectorGroup is the quotes of one sector within a single analysis run.
type SectorGroup struct {
	Sector string
	Quotes []models.Quote
}

// NormalizeQuote is the one place a marketfeed record becomes a Quote.
// changePercent is 0 when the previous close is 0.
func NormalizeQuote(inst universe.Instrument, rec *dhan.MarketFeedRecord, now time.Time) models.Quote {
	prevClose := rec.OHLC.Close

	changePercent := 0.0
	if prevClose != 0 {
		changePercent = decimal.NewFromFloat(rec.NetChange).
			Div(decimal.NewFromFloat(prevClose)).
			Mul(hundred).
			Round(2).
			InexactFloat64()
	}

	valueTraded := rec.Volume * rec.LastPrice
	if rec.AveragePrice > 0 {
		valueTraded = rec.Volume * rec.AveragePrice
	}

	return models.Quote{
		SecurityID:    inst.SecurityID,
		Symbol:        inst.Symbol,
		Price:         rec.LastPrice,
		Change:        rec.NetChange,
		ChangePercent: changePercent,
		Volume:        rec.Volume,
		ValueTraded:   valueTraded,
		PrevClose:     prevClose,
		AveragePrice:  rec.AveragePrice,
		Sector:        inst.Sector,
		CompanyName:   inst.Name,
		Timestamp:     now,
	}
}

// GroupBySector partitions quotes on their sector, in order of first appearance.
// The Others bucket is dropped unless includeOthers is set.
func GroupBySector(quotes []models.Quote, includeOthers bool) []SectorGroup {
	index := make(map[string]int)
	var groups []SectorGroup

	for _, q := range quotes {
		if q.Sector == universe.OthersSector && !includeOthers {
			continue
		}
		i, ok := index[q.Sector]
		if !ok {
			i = len(groups)
			index[q.Sector] = i
			groups = append(groups, SectorGroup{Sector: q.Sector})
		}
		groups[i].Quotes = append(groups[i].Quotes, q)
	}

	return groups
}

// ScoreSectors aggregates every group with at least minSize members and returns
// them ordered by performanceScore descending, then sector name ascending.
func ScoreSectors(groups []SectorGroup, weights Weights, minSize, topStocks int) []models.SectorPerformance {
	performances := make([]models.SectorPerformance, 0, len(groups))

	for _, g := range groups {
		n := len(g.Quotes)
		if n == 0 || n < minSize {
			continue
		}

		var sumChange, sumVolume, totalValue float64
		for _, q := range g.Quotes {
			sumChange += q.ChangePercent
			sumVolume += q.Volume
			totalValue += q.ValueTraded
		}
		avgChange := sumChange / float64(n)
		avgVolume := sumVolume / float64(n)

		performances = append(performances, models.SectorPerformance{
			Sector:           g.Sector,
			AvgChangePercent: round2(avgChange),
			AvgVolume:        avgVolume,
			TotalValueTraded: totalValue,
			StockCount:       n,
			PerformanceScore: round2(weights.Score(avgChange, avgVolume, totalValue)),
			TopStocks:        RankGainers(g.Quotes, topStocks),
		})
	}

	sort.SliceStable(performances, func(i, j int) bool {
		if performances[i].PerformanceScore != performances[j].PerformanceScore {
			return performances[i].PerformanceScore > performances[j].PerformanceScore
		}
		return performances[i].Sector < performances[j].Sector
	})

	return performances
}

// RankGainers returns a copy of quotes ordered by changePercent descending,
// truncated to n (n <= 0 keeps all). Equal moves keep their input order.
func RankGainers(quotes []models.Quote, n int) []models.Quote {
	ranked := make([]models.Quote, len(quotes))
	copy(ranked, quotes)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ChangePercent > ranked[j].ChangePercent
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// BuildAnalysis runs group, score and rank over already normalized quotes.
func BuildAnalysis(quotes []models.Quote, weights Weights, opts Options, now time.Time) *models.SectorAnalysis {
	opts = opts.withDefaults()

	all := ScoreSectors(GroupBySector(quotes, opts.IncludeOthers), weights, opts.MinSectorSize, opts.TopStocksPerSector)

	top := make([]models.SectorPerformance, 0, opts.TopSectors)
	for i := 0; i < len(all) && i < opts.TopSectors; i++ {
		top = append(top, all[i])
	}

	topStocks := make([]models.Quote, 0, opts.TopStocks)
	for _, sector := range top {
		for _, q := range sector.TopStocks {
			if len(topStocks) == opts.TopStocks {
				break
			}
			topStocks = append(topStocks, q)
		}
	}

	return &models.SectorAnalysis{
		TopStocks:     topStocks,
		TopSectors:    top,
		AllSectorData: all,
		TopGainers:    RankGainers(quotes, opts.TopGainers),
		TotalStocks:   len(quotes),
		TotalSectors:  len(all),
		Timestamp:     now,
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
