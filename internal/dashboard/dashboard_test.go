package dashboard

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sisedash/internal/domain"
	"sisedash/internal/snapshot"
	"sisedash/internal/util"
)

const olderCSV = `종목코드,종목명,현재가,시가,고가,저가,거래량,PER
005930,삼성전자,52000,52000,52500,51800,1000,10.1
`

const newerCSV = `종목코드,종목명,현재가,시가,고가,저가,거래량,PER
005930,삼성전자,53000,52700,53600,52400,12345678,10.52
000660,SK하이닉스,171200,170000,173500,169000,2345678,
035420,NAVER,189000,190000,191500,187500,456789,20.1
028260,삼성물산,150000,0,151000,149000,1000,
`

func writeSnapshots(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"sise_20241229_093000.csv": olderCSV,
		"sise_20241230_215134.csv": newerCSV,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// fakeEnricher answers from the ticker code and records concurrency.
type fakeEnricher struct {
	failCode string
	failNews string
	delay    func(code string) time.Duration

	active atomic.Int32
	peak   atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeEnricher) enter() func() {
	n := f.active.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { f.active.Add(-1) }
}

func (f *fakeEnricher) CompanySummary(ctx context.Context, code string) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	f.calls = append(f.calls, code)
	f.mu.Unlock()
	if f.delay != nil {
		time.Sleep(f.delay(code))
	}
	if code == f.failCode {
		return "", errors.New("boom")
	}
	return "summary of " + code, nil
}

func (f *fakeEnricher) News(ctx context.Context, name string) ([]domain.NewsItem, error) {
	if name == f.failNews {
		return nil, errors.New("news down")
	}
	return []domain.NewsItem{{Title: name + " headline", Link: "https://news.example/" + name}}, nil
}

// ---------------------------------------------------------------------------
// Metrics and formatting
// ---------------------------------------------------------------------------

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name        string
		price, open float64
		wantPct     float64
		wantOK      bool
	}{
		{"up", 53000, 52700, 0.6, true},
		{"half rounds up", 10015, 10000, 0.2, true},
		{"half rounds away from zero", 9985, 10000, -0.2, true},
		{"down", 189000, 190000, -0.5, true},
		{"flat", 100, 100, 0, true},
		{"zero open", 150000, 0, 0, false},
		{"missing price", math.NaN(), 100, 0, false},
		{"missing open", 100, math.NaN(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(domain.StockRow{Price: tt.price, Open: tt.open})
			if m.HasChange != tt.wantOK {
				t.Fatalf("HasChange = %v, want %v", m.HasChange, tt.wantOK)
			}
			if m.ChangePct != tt.wantPct {
				t.Errorf("ChangePct = %v, want %v", m.ChangePct, tt.wantPct)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatWon(53000), "53,000원"},
		{FormatWon(999.6), "1,000원"},
		{FormatWon(math.NaN()), "-"},
		{FormatInt(12345678), "12,345,678"},
		{FormatInt(0), "0"},
		{FormatPER(10.52), "10.52"},
		{FormatPER(20.1), "20.10"},
		{FormatPER(math.NaN()), "-"},
		{FormatChange(Metrics{ChangePct: 0.6, HasChange: true}), "+0.6%"},
		{FormatChange(Metrics{ChangePct: -0.2, HasChange: true}), "-0.2%"},
		{FormatChange(Metrics{HasChange: true}), "0.0%"},
		{FormatChange(Metrics{}), "-"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d = %q, want %q", i, tt.got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestBuildDefaultsToLatest(t *testing.T) {
	svc := NewService(snapshot.NewLocator(writeSnapshots(t), nil), nil, Options{})

	page, err := svc.Build(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if page.Snapshot.ID != "20241230_215134" {
		t.Errorf("Snapshot.ID = %q, want %q", page.Snapshot.ID, "20241230_215134")
	}
	if page.Snapshot.Label != "2024년 12월 30일 21:51:34" {
		t.Errorf("Snapshot.Label = %q", page.Snapshot.Label)
	}
	if len(page.Snapshots) != 2 || page.Snapshots[1].ID != "20241229_093000" {
		t.Errorf("Snapshots = %+v, want both, newest first", page.Snapshots)
	}
	if len(page.Rows) != 4 {
		t.Fatalf("len(Rows) = %d, want 4", len(page.Rows))
	}
	first := page.Rows[0]
	if first.Code != "005930" {
		t.Errorf("Rows[0].Code = %q, want %q", first.Code, "005930")
	}
	if !first.Metrics.HasChange || first.Metrics.ChangePct != 0.6 {
		t.Errorf("Rows[0].Metrics = %+v, want +0.6", first.Metrics)
	}
	if first.Detail != nil {
		t.Error("Detail should be nil without enrichment")
	}
}

func TestBuildSelectsSnapshotAndFilters(t *testing.T) {
	svc := NewService(snapshot.NewLocator(writeSnapshots(t), nil), nil, Options{})

	page, err := svc.Build(context.Background(), Request{SnapshotID: "20241229_093000", Query: "삼성"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if page.Snapshot.ID != "20241229_093000" {
		t.Errorf("Snapshot.ID = %q, want older snapshot", page.Snapshot.ID)
	}
	if page.Query != "삼성" || len(page.Rows) != 1 || page.Rows[0].Price != 52000 {
		t.Errorf("page = %+v, want the single older 삼성전자 row", page)
	}

	page, err = svc.Build(context.Background(), Request{Query: "삼성"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(page.Rows) != 2 || page.Rows[0].Name != "삼성전자" || page.Rows[1].Name != "삼성물산" {
		t.Errorf("filtered rows = %+v, want 삼성전자 then 삼성물산", page.Rows)
	}
}

func TestBuildUnknownSnapshot(t *testing.T) {
	svc := NewService(snapshot.NewLocator(writeSnapshots(t), nil), nil, Options{})
	_, err := svc.Build(context.Background(), Request{SnapshotID: "20200101_000000"})
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Errorf("Build error = %v, want ErrNotFound", err)
	}
}

func TestSnapshotsNoneUsable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := NewService(snapshot.NewLocator(dir, nil), nil, Options{})
	if _, err := svc.Snapshots(); !errors.Is(err, snapshot.ErrNotFound) {
		t.Errorf("Snapshots error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Build(context.Background(), Request{}); !errors.Is(err, snapshot.ErrNotFound) {
		t.Errorf("Build error = %v, want ErrNotFound", err)
	}
}

func TestBuildWithEnrichment(t *testing.T) {
	enr := &fakeEnricher{failCode: "000660"}
	svc := NewService(snapshot.NewLocator(writeSnapshots(t), nil), enr, Options{MaxWorkers: 2})

	page, err := svc.Build(context.Background(), Request{Enrich: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, r := range page.Rows {
		if r.Detail == nil {
			t.Fatalf("Rows[%d].Detail is nil", i)
		}
		if r.Code == "000660" {
			if r.Detail.Err == nil {
				t.Error("failing row should carry its error")
			}
			continue
		}
		if r.Detail.Err != nil {
			t.Errorf("Rows[%d].Detail.Err = %v", i, r.Detail.Err)
		}
		if r.Detail.Summary != "summary of "+r.Code {
			t.Errorf("Rows[%d].Detail.Summary = %q, want summary of its own code", i, r.Detail.Summary)
		}
		if len(r.Detail.News) != 1 || r.Detail.News[0].Title != r.Name+" headline" {
			t.Errorf("Rows[%d].Detail.News = %+v", i, r.Detail.News)
		}
	}
}

func TestEnrichPreservesOrderAndBoundsWorkers(t *testing.T) {
	rows := make([]domain.StockRow, 12)
	for i := range rows {
		rows[i] = domain.StockRow{Code: string(rune('A' + i)), Name: string(rune('a' + i))}
	}
	// Earlier rows finish last.
	enr := &fakeEnricher{delay: func(code string) time.Duration {
		return time.Duration('M'-code[0]) * time.Millisecond
	}}
	svc := NewService(snapshot.NewLocator(t.TempDir(), nil), enr, Options{MaxWorkers: 3})

	details := svc.Enrich(context.Background(), rows)
	if len(details) != len(rows) {
		t.Fatalf("len(details) = %d, want %d", len(details), len(rows))
	}
	for i, d := range details {
		if want := "summary of " + rows[i].Code; d.Summary != want {
			t.Errorf("details[%d].Summary = %q, want %q", i, d.Summary, want)
		}
	}
	if p := enr.peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	if len(enr.calls) != len(rows) {
		t.Errorf("CompanySummary called %d times, want %d", len(enr.calls), len(rows))
	}
}

func TestDetailNewsFailureKeepsSummary(t *testing.T) {
	enr := &fakeEnricher{failNews: "NAVER"}
	svc := NewService(snapshot.NewLocator(t.TempDir(), nil), enr, Options{})

	d := svc.Detail(context.Background(), "035420", "NAVER")
	if d.Err == nil {
		t.Fatal("Detail should report the news failure")
	}
	if d.Summary != "summary of 035420" {
		t.Errorf("Summary = %q, want it kept", d.Summary)
	}
	if d.News == nil || len(d.News) != 0 {
		t.Errorf("News = %#v, want empty non-nil", d.News)
	}
}

func TestEnrichEmpty(t *testing.T) {
	svc := NewService(snapshot.NewLocator(t.TempDir(), nil), &fakeEnricher{}, Options{})
	if got := svc.Enrich(context.Background(), nil); len(got) != 0 {
		t.Errorf("Enrich(nil) = %v, want empty", got)
	}
}

func TestEnrichPacedByLimiter(t *testing.T) {
	rows := []domain.StockRow{{Code: "005930", Name: "삼성전자"}, {Code: "035420", Name: "NAVER"}}
	svc := NewService(snapshot.NewLocator(t.TempDir(), nil), &fakeEnricher{}, Options{
		MaxWorkers: 2,
		Limiter:    util.NewRateLimiter(6000),
	})
	for i, d := range svc.Enrich(context.Background(), rows) {
		if d.Err != nil || d.Summary != "summary of "+rows[i].Code {
			t.Errorf("details[%d] = %+v", i, d)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lim := util.NewRateLimiter(1)
	if err := lim.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	paced := NewService(snapshot.NewLocator(t.TempDir(), nil), &fakeEnricher{}, Options{Limiter: lim})
	if d := paced.Detail(ctx, "005930", "삼성전자"); !errors.Is(d.Err, context.Canceled) {
		t.Errorf("Detail with cancelled context: Err = %v, want context.Canceled", d.Err)
	}
}

func TestBuildWritesNothing(t *testing.T) {
	dir := writeSnapshots(t)
	before, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(snapshot.NewLocator(dir, nil), &fakeEnricher{}, Options{})
	if _, err := svc.Build(context.Background(), Request{Enrich: true}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	after, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("snapshot dir has %d entries after Build, want %d", len(after), len(before))
	}
}
