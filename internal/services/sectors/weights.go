package sectors

import (
	"time"

	"github.com/ternarybob/marketpulse/internal/common"
)

// Weights are the heuristic performance score coefficients:
//
//	score = Change*|avgChangePercent| + Volume*(avgVolume/VolumeScale) + Value*(totalValueTraded/ValueScale)
type Weights struct {
	Change      float64
	Volume      float64
	Value       float64
	VolumeScale float64
	ValueScale  float64
}

// DefaultWeights returns 0.6 / 0.2 / 0.2 with volume in millions and value in billions.
func DefaultWeights() Weights {
	return Weights{
		Change:      0.6,
		Volume:      0.2,
		Value:       0.2,
		VolumeScale: 1e6,
		ValueScale:  1e9,
	}
}

// Score computes the unrounded performance score.
func (w Weights) Score(avgChangePercent, avgVolume, totalValueTraded float64) float64 {
	if avgChangePercent < 0 {
		avgChangePercent = -avgChangePercent
	}
	score := w.Change * avgChangePercent
	if w.VolumeScale != 0 {
		score += w.Volume * (avgVolume / w.VolumeScale)
	}
	if w.ValueScale != 0 {
		score += w.Value * (totalValueTraded / w.ValueScale)
	}
	return score
}

// Options bound the fetch fan-out and the size of each ranked list.
type Options struct {
	Concurrency        int
	FetchTimeout       time.Duration
	MinSectorSize      int
	TopSectors         int
	TopStocksPerSector int
	TopGainers         int
	TopStocks          int
	Batch              bool
	IncludeOthers      bool
	FailOnEmpty        bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency:        8,
		FetchTimeout:       10 * time.Second,
		MinSectorSize:      2,
		TopSectors:         3,
		TopStocksPerSector: 3,
		TopGainers:         10,
		TopStocks:          9,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.MinSectorSize <= 0 {
		o.MinSectorSize = d.MinSectorSize
	}
	if o.TopSectors <= 0 {
		o.TopSectors = d.TopSectors
	}
	if o.TopStocksPerSector <= 0 {
		o.TopStocksPerSector = d.TopStocksPerSector
	}
	if o.TopGainers <= 0 {
		o.TopGainers = d.TopGainers
	}
	if o.TopStocks <= 0 {
		o.TopStocks = d.TopStocks
	}
	return o
}

// FromConfig maps the [sectors] config section onto weights and options.
func FromConfig(cfg common.SectorsConfig) (Weights, Options) {
	weights := DefaultWeights()
	if cfg.ChangeWeight != 0 || cfg.VolumeWeight != 0 || cfg.ValueWeight != 0 {
		weights.Change = cfg.ChangeWeight
		weights.Volume = cfg.VolumeWeight
		weights.Value = cfg.ValueWeight
	}
	if cfg.VolumeScale > 0 {
		weights.VolumeScale = cfg.VolumeScale
	}
	if cfg.ValueScale > 0 {
		weights.ValueScale = cfg.ValueScale
	}

	opts := Options{
		Concurrency:        cfg.Concurrency,
		FetchTimeout:       common.ParseDuration(cfg.FetchTimeout, 0),
		MinSectorSize:      cfg.MinSectorSize,
		TopSectors:         cfg.TopSectors,
		TopStocksPerSector: cfg.TopStocksPerSector,
		TopGainers:         cfg.TopGainers,
		TopStocks:          cfg.TopStocks,
		Batch:              cfg.Batch,
		IncludeOthers:      cfg.IncludeOthers,
		FailOnEmpty:        cfg.FailOnEmpty,
	}

	return weights, opts.withDefaults()
}
