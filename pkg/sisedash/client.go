// Package sisedash is a Go client for the sise-server HTTP API.
package sisedash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sisedash/internal/httpapi"
)

// Response types, shared with the server.
type (
	Snapshot          = httpapi.SnapshotJSON
	Row               = httpapi.RowJSON
	Formatted         = httpapi.FormattedJSON
	Detail            = httpapi.DetailJSON
	News              = httpapi.NewsJSON
	DashboardResponse = httpapi.DashboardResponse
	TickerResponse    = httpapi.TickerResponse
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sise-server: %d %s", e.StatusCode, e.Message)
}

// Is makes a 404 APIError match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client provides a Go SDK for interacting with the sise-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// DashboardQuery selects what Dashboard returns.
type DashboardQuery struct {
	Snapshot string // empty for the most recent
	Query    string
	Enrich   bool
}

// Snapshots lists the available snapshots, most recent first.
func (c *Client) Snapshots(ctx context.Context) ([]Snapshot, error) {
	var resp httpapi.SnapshotsResponse
	if err := c.get(ctx, "/api/snapshots", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// Dashboard fetches the rows of a snapshot.
func (c *Client) Dashboard(ctx context.Context, q DashboardQuery) (*DashboardResponse, error) {
	params := url.Values{}
	if q.Snapshot != "" {
		params.Set("snapshot", q.Snapshot)
	}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Enrich {
		params.Set("enrich", "1")
	}
	var resp DashboardResponse
	if err := c.get(ctx, "/api/dashboard", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ticker fetches the company summary and news of one ticker. When the server
// could reach only part of the data, the partial response is returned along
// with the error.
func (c *Client) Ticker(ctx context.Context, code, name string) (*TickerResponse, error) {
	var resp TickerResponse
	err := c.get(ctx, "/api/tickers/"+url.PathEscape(code), url.Values{"name": {name}}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadGateway {
		return &resp, err
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// get issues a GET and decodes the JSON body into v. On non-2xx responses v
// is still decoded when possible and an *APIError is returned.
func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &e)
		json.Unmarshal(body, v)
		msg := e.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
