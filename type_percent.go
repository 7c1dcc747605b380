package advisory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a percentage, 12.5 means 12.5%.
type Percent float64

// ratio converts a ratio like 0.125 into a Percent rounded to one decimal.
func ratio(d decimal.Decimal) Percent {
	return Percent(d.Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.1f%%", p)
}
