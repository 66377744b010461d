package naver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sisedash/internal/domain"
)

// SummaryExtractor locates the company summary in a finance page. It
// reports false when the page does not contain one.
type SummaryExtractor interface {
	ExtractSummary(doc *goquery.Document) (string, bool)
}

// NewsExtractor locates up to limit headlines in a news search page, in
// page order.
type NewsExtractor interface {
	ExtractNews(doc *goquery.Document, limit int) []domain.NewsItem
}

// Compile-time interface checks.
var _ SummaryExtractor = ClassSummary{}
var _ NewsExtractor = ClassNews{}

// ClassSummary takes the text of the first element carrying Class. An
// element that is present but has no visible text counts as a miss, so the
// caller shows its fallback message instead of an empty summary.
type ClassSummary struct {
	Class string
}

// ExtractSummary implements SummaryExtractor.
func (c ClassSummary) ExtractSummary(doc *goquery.Document) (string, bool) {
	sel := doc.Find(classSelector("", c.Class)).First()
	if sel.Length() == 0 {
		return "", false
	}
	text := StrippedText(sel)
	if text == "" {
		return "", false
	}
	return text, true
}

// ClassNews takes anchors carrying Class.
type ClassNews struct {
	Class string
}

// ExtractNews implements NewsExtractor.
func (c ClassNews) ExtractNews(doc *goquery.Document, limit int) []domain.NewsItem {
	if limit <= 0 {
		return []domain.NewsItem{}
	}
	items := make([]domain.NewsItem, 0, limit)
	doc.Find(classSelector("a", c.Class)).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		href, _ := s.Attr("href")
		items = append(items, domain.NewsItem{
			Title: StrippedText(s),
			Link:  strings.TrimSpace(href),
		})
		return true
	})
	return items
}

// StrippedText returns the visible text under sel as the page renders it
// inline: text nodes are concatenated as written, then whitespace runs are
// collapsed to single spaces and the ends trimmed. Script and style content
// is skipped.
func StrippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// classSelector builds "tag.class" for a single class name. Class names
// containing whitespace are treated as several classes that must all match.
func classSelector(tag, class string) string {
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return tag
	}
	return tag + "." + strings.Join(fields, ".")
}
