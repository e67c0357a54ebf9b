package models

import "time"

// Quote is the normalized snapshot of one instrument's latest trade.
// Built only by sectors.NormalizeQuote.
type Quote struct {
	SecurityID    string    `json:"securityId"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        float64   `json:"volume"`
	ValueTraded   float64   `json:"valueTraded"`
	PrevClose     float64   `json:"prevClose"`
	AveragePrice  float64   `json:"averagePrice"`
	MarketCap     float64   `json:"marketCap"`
	Sector        string    `json:"sector"`
	CompanyName   string    `json:"companyName"`
	Timestamp     time.Time `json:"timestamp"`
}

// SectorPerformance is the aggregate view of one sector with enough members to rank.
type SectorPerformance struct {
	Sector           string  `json:"sector"`
	AvgChangePercent float64 `json:"avgChangePercent"`
	AvgVolume        float64 `json:"avgVolume"`
	TotalValueTraded float64 `json:"totalValueTraded"`
	StockCount       int     `json:"stockCount"`
	PerformanceScore float64 `json:"performanceScore"`
	TopStocks        []Quote `json:"topStocks"`
}

// SectorAnalysis is the response of the sector analysis endpoint.
type SectorAnalysis struct {
	TopStocks     []Quote             `json:"topStocks"`
	TopSectors    []SectorPerformance `json:"topSectors"`
	AllSectorData []SectorPerformance `json:"allSectorData"`
	TopGainers    []Quote             `json:"topGainers"`
	TotalStocks   int                 `json:"totalStocks"`
	TotalSectors  int                 `json:"totalSectors"`
	Timestamp     time.Time           `json:"timestamp"`
}

// StockSnapshot is the quote shape returned by the quote, search and trending endpoints.
type StockSnapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        float64   `json:"volume"`
	MarketCap     float64   `json:"marketCap"`
	PERatio       float64   `json:"peRatio"`
	EPS           float64   `json:"eps"`
	CompanyName   string    `json:"companyName"`
	Sector        string    `json:"sector"`
	Exchange      string    `json:"exchange"`
	Mentions      int       `json:"mentions"`
	Timestamp     time.Time `json:"timestamp"`
}

// TrendingStocks is the popular-stock ranking ordered by absolute move.
type TrendingStocks struct {
	Stocks    []StockSnapshot `json:"stocks"`
	Total     int             `json:"total"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// Mention is one ticker-like word and how often it appeared in social posts.
type Mention struct {
	Symbol   string `json:"symbol"`
	Mentions int    `json:"mentions"`
}
