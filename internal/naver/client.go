// Package naver scrapes the company summary from Naver Finance and recent
// headlines from Naver News search. What to pick out of each page is
// delegated to pluggable extraction strategies.
package naver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"sisedash/internal/domain"
)

// SummaryNotFound is returned in place of a summary when the finance page
// does not contain one.
const SummaryNotFound = "기업 요약 정보를 찾을 수 없습니다."

// Default endpoints and markers.
const (
	DefaultFinanceURL   = "https://finance.naver.com/item/main.naver"
	DefaultSearchURL    = "https://search.naver.com/search.naver"
	DefaultSummaryClass = "summary_info"
	DefaultNewsClass    = "news_tit"
	DefaultNewsLimit    = 5
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client fetches and extracts Naver pages. It keeps no state between calls.
type Client struct {
	httpClient *http.Client
	financeURL string
	searchURL  string
	userAgent  string
	newsLimit  int
	summary    SummaryExtractor
	news       NewsExtractor
	log        *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithFinanceURL overrides the company page endpoint.
func WithFinanceURL(u string) Option { return func(c *Client) { c.financeURL = u } }

// WithSearchURL overrides the news search endpoint.
func WithSearchURL(u string) Option { return func(c *Client) { c.searchURL = u } }

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithNewsLimit caps the number of headlines returned by News.
func WithNewsLimit(n int) Option { return func(c *Client) { c.newsLimit = n } }

// WithSummaryExtractor swaps the summary extraction strategy.
func WithSummaryExtractor(e SummaryExtractor) Option { return func(c *Client) { c.summary = e } }

// WithNewsExtractor swaps the headline extraction strategy.
func WithNewsExtractor(e NewsExtractor) Option { return func(c *Client) { c.news = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// NewClient creates a Client pointed at the public Naver endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		financeURL: DefaultFinanceURL,
		searchURL:  DefaultSearchURL,
		userAgent:  "Mozilla/5.0",
		newsLimit:  DefaultNewsLimit,
		summary:    ClassSummary{Class: DefaultSummaryClass},
		news:       ClassNews{Class: DefaultNewsClass},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

// CompanySummary fetches the finance page for a ticker code and returns its
// summary text, or SummaryNotFound when the page has none. Transport errors
// and non-2xx responses are returned as errors.
func (c *Client) CompanySummary(ctx context.Context, code string) (string, error) {
	u, err := withQuery(c.financeURL, url.Values{"code": {code}})
	if err != nil {
		return "", err
	}
	doc, err := c.fetch(ctx, u)
	if err != nil {
		return "", fmt.Errorf("fetching company page for %s: %w", code, err)
	}
	summary, ok := c.summary.ExtractSummary(doc)
	if !ok {
		c.log.Debug("company summary not found", "code", code)
		return SummaryNotFound, nil
	}
	return summary, nil
}

// News searches Naver News for a ticker name and returns up to the
// configured number of headlines in page order. A page without matches
// yields an empty slice.
func (c *Client) News(ctx context.Context, name string) ([]domain.NewsItem, error) {
	u, err := withQuery(c.searchURL, url.Values{"where": {"news"}, "query": {name}})
	if err != nil {
		return nil, err
	}
	doc, err := c.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("searching news for %s: %w", name, err)
	}
	items := c.news.ExtractNews(doc, c.newsLimit)
	c.log.Debug("news extracted", "name", name, "count", len(items))
	return items, nil
}

// fetch GETs u and parses the body as HTML, transcoding it to UTF-8 from the
// charset declared in the response or sniffed from the document.
func (c *Client) fetch(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// withQuery appends q to the query string of base.
func withQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", base, err)
	}
	existing := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			existing.Add(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
