package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// All monetary amounts are carried as an integer number of cents. Arithmetic
// stays in int64 so repeated adds and quantity multiplies are exact; decimal
// conversion happens only at the boundaries.

// ErrInvalidAmount rejects NaN, infinity, and negative inputs instead of
// coercing them to zero and corrupting totals downstream.
var ErrInvalidAmount = errors.New("amount must be a finite, non-negative number")

var oneHundred = decimal.NewFromInt(100)

// ToCents converts a decimal dollar amount into integer cents, rounding
// half-up.
func ToCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, ErrInvalidAmount
	}
	return decimal.NewFromFloat(amount).Mul(oneHundred).Round(0).IntPart(), nil
}

// ToDisplay renders cents as a dollar string with exactly two decimal places
// and thousands separators, e.g. 1234550 -> "12,345.50".
func ToDisplay(cents int64) string {
	fixed := decimal.NewFromInt(cents).Div(oneHundred).StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	grouped := groupThousands(whole)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(grouped)
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Add sums two cent amounts, saturating at the int64 bounds instead of
// wrapping.
func Add(a, b int64) int64 {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt64
	}
	if b < 0 && sum > a {
		return math.MinInt64
	}
	return sum
}

// Multiply scales a cent amount by a quantity, saturating at the int64 bounds
// instead of wrapping.
func Multiply(cents int64, quantity int) int64 {
	if cents == 0 || quantity == 0 {
		return 0
	}
	q := int64(quantity)
	if cents == math.MinInt64 && q == -1 {
		return math.MaxInt64
	}
	product := cents * q
	if product/q != cents {
		if (cents > 0) == (q > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return product
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
