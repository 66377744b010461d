package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"sisedash/internal/dashboard"
	"sisedash/internal/domain"
	"sisedash/internal/snapshot"
)

const testCSV = `종목코드,종목명,현재가,시가,고가,저가,거래량,PER
005930,삼성전자,53000,52700,53600,52400,12345678,10.52
000660,SK하이닉스,171200,170000,173500,169000,2345678,
`

type stubEnricher struct {
	err error
}

func (s stubEnricher) CompanySummary(_ context.Context, code string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "summary " + code, nil
}

func (s stubEnricher) News(_ context.Context, name string) ([]domain.NewsItem, error) {
	return []domain.NewsItem{{Title: name, Link: "https://n.example/" + url.PathEscape(name)}}, nil
}

func newTestServer(t *testing.T, dir string, enr dashboard.Enricher) *httptest.Server {
	t.Helper()
	svc := dashboard.NewService(snapshot.NewLocator(dir, nil), enr, dashboard.Options{MaxWorkers: 2})
	srv := httptest.NewServer(NewDashboardServer(svc, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func snapshotDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"sise_20241229_093000.csv", "sise_20241230_215134.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(testCSV), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func getJSON(t *testing.T, u string, v any) int {
	t.Helper()
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", u, err)
	}
	return resp.StatusCode
}

func TestSnapshotsEndpoint(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), nil)

	var resp SnapshotsResponse
	if code := getJSON(t, srv.URL+"/api/snapshots", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(resp.Snapshots))
	}
	first := resp.Snapshots[0]
	if first.ID != "20241230_215134" || first.Label != "2024년 12월 30일 21:51:34" || first.File != "sise_20241230_215134.csv" {
		t.Errorf("Snapshots[0] = %+v", first)
	}
}

func TestSnapshotsEndpointNotFound(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing"), nil)

	var resp map[string]string
	if code := getJSON(t, srv.URL+"/api/snapshots", &resp); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
	if resp["error"] == "" {
		t.Error("error message missing")
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), stubEnricher{})

	var resp DashboardResponse
	if code := getJSON(t, srv.URL+"/api/dashboard", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Snapshot.ID != "20241230_215134" || resp.Count != 2 || len(resp.Snapshots) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	row := resp.Rows[0]
	if row.Code != "005930" {
		t.Errorf("Code = %q, want %q", row.Code, "005930")
	}
	if row.Formatted.Price != "53,000원" || row.Formatted.Volume != "12,345,678" || row.Formatted.Change != "+0.6%" {
		t.Errorf("Formatted = %+v", row.Formatted)
	}
	if row.ChangePct == nil || *row.ChangePct != 0.6 {
		t.Errorf("ChangePct = %v, want 0.6", row.ChangePct)
	}
	if row.Detail != nil {
		t.Error("Detail should be omitted without enrich")
	}
	if resp.Rows[1].PER != nil || resp.Rows[1].Formatted.PER != "-" {
		t.Errorf("missing PER = %v / %q, want null and -", resp.Rows[1].PER, resp.Rows[1].Formatted.PER)
	}
}

func TestDashboardEndpointFilterAndEnrich(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), stubEnricher{})

	u := srv.URL + "/api/dashboard?" + url.Values{
		"snapshot": {"20241229_093000"},
		"q":        {"sk"},
		"enrich":   {"1"},
	}.Encode()
	var resp DashboardResponse
	if code := getJSON(t, u, &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Snapshot.ID != "20241229_093000" || resp.Query != "sk" || resp.Count != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	d := resp.Rows[0].Detail
	if d == nil || d.Summary != "summary 000660" || len(d.News) != 1 || d.News[0].Title != "SK하이닉스" {
		t.Errorf("Detail = %+v", d)
	}
}

func TestDashboardEndpointErrors(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), nil)

	tests := []struct {
		query string
		want  int
	}{
		{"snapshot=bogus", http.StatusBadRequest},
		{"enrich=maybe", http.StatusBadRequest},
		{"snapshot=20200101_000000", http.StatusNotFound},
	}
	for _, tt := range tests {
		var resp map[string]string
		if code := getJSON(t, srv.URL+"/api/dashboard?"+tt.query, &resp); code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.query, code, tt.want)
		}
	}
}

func TestTickerEndpoint(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), stubEnricher{})

	var resp TickerResponse
	code := getJSON(t, srv.URL+"/api/tickers/5930?name="+url.QueryEscape("삼성전자"), &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Code != "005930" || resp.Summary != "summary 005930" || len(resp.News) != 1 || resp.Error != "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTickerEndpointErrors(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), stubEnricher{err: errors.New("upstream down")})

	var resp TickerResponse
	if code := getJSON(t, srv.URL+"/api/tickers/005930?name=x", &resp); code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", code)
	}
	if resp.Error != "upstream down" {
		t.Errorf("Error = %q", resp.Error)
	}

	var bad map[string]string
	if code := getJSON(t, srv.URL+"/api/tickers/005930", &bad); code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, snapshotDir(t), nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/dashboard", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
