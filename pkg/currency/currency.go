package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseUSD converts a decimal USD amount into integer cents. Amounts with
// sub-cent precision are rejected so no rounding ever happens at the API
// boundary.
func ParseUSD(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount.String())
	}
	if cents.Sign() <= 0 {
		return 0, fmt.Errorf("amount %s is not positive", amount.String())
	}
	return cents.IntPart(), nil
}

// CentsToUSD renders integer cents as a decimal USD value.
func CentsToUSD(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// FormatUSD formats cents as a display string, e.g. "$60.00".
func FormatUSD(cents int64) string {
	return fmt.Sprintf("$%s", CentsToUSD(cents).StringFixed(2))
}

// USDCentsToVND converts USD cents to whole VND at the given rate. VND has
// no minor unit; the division is exact for whole-dollar rates.
func USDCentsToVND(cents int64, rate int64) int64 {
	return cents * rate / 100
}
