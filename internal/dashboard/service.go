// Package dashboard assembles what the dashboard shows for one request: the
// selected snapshot, its filtered rows with derived metrics, and optionally
// the Naver enrichment of every row. It is shared by the HTTP API and the
// terminal client.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sisedash/internal/domain"
	"sisedash/internal/snapshot"
	"sisedash/internal/util"
)

// DefaultMaxWorkers bounds the enrichment fan-out when no limit is given.
const DefaultMaxWorkers = 8

// Enricher fetches per-ticker enrichment. *naver.Client satisfies it.
type Enricher interface {
	CompanySummary(ctx context.Context, code string) (string, error)
	News(ctx context.Context, name string) ([]domain.NewsItem, error)
}

// Request carries everything one dashboard render depends on.
type Request struct {
	SnapshotID string // empty selects the most recent snapshot
	Query      string // ticker name filter
	Enrich     bool   // fetch summary and news for every displayed row
}

// Row is a displayed ticker with its derived values.
type Row struct {
	domain.StockRow
	Metrics Metrics
	Detail  *domain.Detail // nil unless the request asked for enrichment
}

// Page is the result of Build.
type Page struct {
	Snapshot  domain.Snapshot
	Snapshots []domain.Snapshot
	Query     string
	Rows      []Row
}

// Options configures a Service.
type Options struct {
	MaxWorkers int
	Limiter    *util.RateLimiter
	Logger     *slog.Logger
}

// Service builds dashboard pages. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	locator    *snapshot.Locator
	enricher   Enricher
	maxWorkers int
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewService creates a Service reading snapshots through loc and enriching
// rows through enr. enr may be nil, in which case enrichment is skipped.
func NewService(loc *snapshot.Locator, enr Enricher, opts Options) *Service {
	s := &Service{
		locator:    loc,
		enricher:   enr,
		maxWorkers: opts.MaxWorkers,
		limiter:    opts.Limiter,
		log:        opts.Logger,
	}
	if s.maxWorkers <= 0 {
		s.maxWorkers = DefaultMaxWorkers
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// Snapshots lists the usable snapshots, most recent first. It returns
// snapshot.ErrNotFound when there are none.
func (s *Service) Snapshots() ([]domain.Snapshot, error) {
	snaps, err := s.locator.List()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: no file in %s has a timestamp suffix", snapshot.ErrNotFound, s.locator.Dir())
	}
	return snaps, nil
}

// Build selects, loads and filters a snapshot according to req.
func (s *Service) Build(ctx context.Context, req Request) (*Page, error) {
	snaps, err := s.Snapshots()
	if err != nil {
		return nil, err
	}
	selected, err := pick(snaps, req.SnapshotID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	all, err := snapshot.Load(selected.Path)
	if err != nil {
		return nil, err
	}
	filtered := snapshot.Filter(all, req.Query)

	rows := make([]Row, len(filtered))
	for i, r := range filtered {
		rows[i] = Row{StockRow: r, Metrics: ComputeMetrics(r)}
	}

	if req.Enrich && s.enricher != nil {
		details := s.Enrich(ctx, filtered)
		for i := range rows {
			rows[i].Detail = &details[i]
		}
	}

	s.log.Info("dashboard built",
		"snapshot", selected.ID,
		"query", req.Query,
		"rows", len(rows),
		"total", len(all),
		"enrich", req.Enrich,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &Page{
		Snapshot:  selected,
		Snapshots: snaps,
		Query:     req.Query,
		Rows:      rows,
	}, nil
}

// Enrich fetches the detail of every row concurrently, at most maxWorkers at
// a time. The result has one entry per row in row order. A failing row
// carries its error in Detail.Err and does not affect the others.
func (s *Service) Enrich(ctx context.Context, rows []domain.StockRow) []domain.Detail {
	details := make([]domain.Detail, len(rows))
	if s.enricher == nil {
		return details
	}

	var g errgroup.Group
	g.SetLimit(s.maxWorkers)
	for i, r := range rows {
		g.Go(func() error {
			details[i] = s.Detail(ctx, r.Code, r.Name)
			return nil
		})
	}
	g.Wait()

	var failed int
	for _, d := range details {
		if d.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.log.Warn("enrichment incomplete", "rows", len(rows), "failed", failed)
	}
	return details
}

// Detail fetches the company summary and news for one ticker.
func (s *Service) Detail(ctx context.Context, code, name string) domain.Detail {
	if s.enricher == nil {
		return domain.Detail{News: []domain.NewsItem{}}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Detail{News: []domain.NewsItem{}, Err: err}
	}

	summary, err := s.enricher.CompanySummary(ctx, code)
	if err != nil {
		s.log.Debug("company summary failed", "code", code, "error", err)
		return domain.Detail{News: []domain.NewsItem{}, Err: err}
	}
	news, err := s.enricher.News(ctx, name)
	if err != nil {
		s.log.Debug("news failed", "code", code, "name", name, "error", err)
		return domain.Detail{Summary: summary, News: []domain.NewsItem{}, Err: err}
	}
	if news == nil {
		news = []domain.NewsItem{}
	}
	return domain.Detail{Summary: summary, News: news}
}

func pick(snaps []domain.Snapshot, id string) (domain.Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return snaps[0], nil
	}
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Snapshot{}, fmt.Errorf("%w: snapshot %s", snapshot.ErrNotFound, id)
}
