package snapshot

import (
	"strings"

	"golang.org/x/text/cases"

	"sisedash/internal/domain"
)

// Filter returns the rows whose Name contains query, compared with Unicode
// case folding. The query is matched literally. An empty or blank query
// returns rows itself. Row order is preserved.
func Filter(rows []domain.StockRow, query string) []domain.StockRow {
	query = strings.TrimSpace(query)
	if query == "" {
		return rows
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]domain.StockRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(fold.String(r.Name), needle) {
			out = append(out, r)
		}
	}
	return out
}
