// Package httpapi provides an HTTP REST API for the snapshot dashboard,
// serving the same data as the terminal client in JSON format.
package httpapi

import (
	"math"
	"path/filepath"

	"sisedash/internal/dashboard"
	"sisedash/internal/domain"
)

// SnapshotJSON identifies one snapshot.
type SnapshotJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	File  string `json:"file"`
}

// SnapshotsResponse is the response for GET /api/snapshots.
type SnapshotsResponse struct {
	Snapshots []SnapshotJSON `json:"snapshots"`
}

// NewsJSON is a single headline.
type NewsJSON struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// DetailJSON is the enrichment of one ticker. Error is set when fetching
// failed.
type DetailJSON struct {
	Summary string     `json:"summary"`
	News    []NewsJSON `json:"news"`
	Error   string     `json:"error,omitempty"`
}

// FormattedJSON holds the display strings of a row.
type FormattedJSON struct {
	Price  string `json:"price"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Volume string `json:"volume"`
	PER    string `json:"per"`
	Change string `json:"change"`
}

// RowJSON is one ticker row. Missing numbers are null.
type RowJSON struct {
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Price     *float64      `json:"price"`
	Open      *float64      `json:"open"`
	High      *float64      `json:"high"`
	Low       *float64      `json:"low"`
	Volume    *float64      `json:"volume"`
	PER       *float64      `json:"per"`
	ChangePct *float64      `json:"changePct"`
	Formatted FormattedJSON `json:"formatted"`
	Detail    *DetailJSON   `json:"detail,omitempty"`
}

// DashboardResponse is the response for GET /api/dashboard.
type DashboardResponse struct {
	Snapshot  SnapshotJSON   `json:"snapshot"`
	Snapshots []SnapshotJSON `json:"snapshots"`
	Query     string         `json:"query"`
	Count     int            `json:"count"`
	Rows      []RowJSON      `json:"rows"`
}

// TickerResponse is the response for GET /api/tickers/{code}.
type TickerResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
	DetailJSON
}

// ---------------------------------------------------------------------------
// Conversion helpers
// ---------------------------------------------------------------------------

func convertSnapshot(s domain.Snapshot) SnapshotJSON {
	return SnapshotJSON{ID: s.ID, Label: s.Label, File: filepath.Base(s.Path)}
}

func convertSnapshots(snaps []domain.Snapshot) []SnapshotJSON {
	out := make([]SnapshotJSON, len(snaps))
	for i, s := range snaps {
		out[i] = convertSnapshot(s)
	}
	return out
}

func convertDetail(d domain.Detail) DetailJSON {
	news := make([]NewsJSON, len(d.News))
	for i, n := range d.News {
		news[i] = NewsJSON{Title: n.Title, Link: n.Link}
	}
	out := DetailJSON{Summary: d.Summary, News: news}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	return out
}

func convertRow(r dashboard.Row) RowJSON {
	out := RowJSON{
		Code:   r.Code,
		Name:   r.Name,
		Price:  num(r.Price),
		Open:   num(r.Open),
		High:   num(r.High),
		Low:    num(r.Low),
		Volume: num(r.Volume),
		PER:    num(r.PER),
		Formatted: FormattedJSON{
			Price:  dashboard.FormatWon(r.Price),
			Open:   dashboard.FormatWon(r.Open),
			High:   dashboard.FormatWon(r.High),
			Low:    dashboard.FormatWon(r.Low),
			Volume: dashboard.FormatInt(r.Volume),
			PER:    dashboard.FormatPER(r.PER),
			Change: dashboard.FormatChange(r.Metrics),
		},
	}
	if r.Metrics.HasChange {
		pct := r.Metrics.ChangePct
		out.ChangePct = &pct
	}
	if r.Detail != nil {
		d := convertDetail(*r.Detail)
		out.Detail = &d
	}
	return out
}

func convertPage(p *dashboard.Page) DashboardResponse {
	rows := make([]RowJSON, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = convertRow(r)
	}
	return DashboardResponse{
		Snapshot:  convertSnapshot(p.Snapshot),
		Snapshots: convertSnapshots(p.Snapshots),
		Query:     p.Query,
		Count:     len(rows),
		Rows:      rows,
	}
}

// num maps NaN and infinities to nil so they encode as null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
