// Package domain defines the core types shared across sisedash: market
// snapshots, the stock rows they contain, and the per-ticker enrichment
// scraped from Naver.
package domain

import "time"

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Snapshot is one timestamped CSV capture of market data for all listed
// tickers.
type Snapshot struct {
	ID    string    // composed timestamp, YYYYMMDD_HHMMSS
	Label string    // "YYYY년 MM월 DD일 HH:MM:SS"
	Path  string    // file path on disk
	Time  time.Time // parsed from ID, second precision
}

// StockRow is a single ticker line of a snapshot.
type StockRow struct {
	Code   string // 종목코드, zero-padded to 6 digits
	Name   string // 종목명
	Price  float64
	Open   float64
	High   float64
	Low    float64
	Volume float64
	PER    float64 // NaN when the snapshot has no value
}

// ---------------------------------------------------------------------------
// Enrichment
// ---------------------------------------------------------------------------

// NewsItem is a single headline and its link.
type NewsItem struct {
	Title string
	Link  string
}

// Detail is the enrichment gathered for one ticker. Err is set when the
// fetch failed; Summary and News are then incomplete.
type Detail struct {
	Summary string
	News    []NewsItem
	Err     error
}
