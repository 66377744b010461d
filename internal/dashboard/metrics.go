package dashboard

import (
	"math"

	"github.com/shopspring/decimal"

	"sisedash/internal/domain"
)

// Metrics holds the values derived from a row for its detail panel.
type Metrics struct {
	ChangePct float64 // (Price-Open)/Open*100, one decimal
	HasChange bool    // false when Open is zero or a value is missing
}

var hundred = decimal.NewFromInt(100)

// ComputeMetrics derives the intraday change of a row relative to its open.
// The percentage is rounded half away from zero to one decimal.
func ComputeMetrics(r domain.StockRow) Metrics {
	if !finite(r.Price) || !finite(r.Open) || r.Open == 0 {
		return Metrics{}
	}
	price := decimal.NewFromFloat(r.Price)
	open := decimal.NewFromFloat(r.Open)
	pct := price.Sub(open).Mul(hundred).DivRound(open, 8).Round(1)
	return Metrics{ChangePct: pct.InexactFloat64(), HasChange: true}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
