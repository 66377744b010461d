package dashboard

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatInt formats a value rounded to an integer with comma separators,
// or "-" for NaN.
func FormatInt(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.Comma(int64(math.Round(v)))
}

// FormatWon formats a price as "53,000원", or "-" for NaN.
func FormatWon(v float64) string {
	s := FormatInt(v)
	if s == "-" {
		return s
	}
	return s + "원"
}

// FormatPER formats a price/earnings ratio with two decimals, or "-" when
// missing.
func FormatPER(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatChange formats a change percentage as "+1.5%" / "-0.3%", or "-"
// when undefined.
func FormatChange(m Metrics) string {
	if !m.HasChange {
		return "-"
	}
	if m.ChangePct > 0 {
		return fmt.Sprintf("+%.1f%%", m.ChangePct)
	}
	return fmt.Sprintf("%.1f%%", m.ChangePct)
}
