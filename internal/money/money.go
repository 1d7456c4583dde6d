// Package money provides cent-quantized currency arithmetic. Every
// operation quantizes its operands to an integer number of cents before
// computing, so results never carry sub-cent drift regardless of how
// the inputs were produced.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned by Divide when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

var hundred = decimal.NewFromInt(100)

// quantize snaps a dollar value to exact cents (round half away from zero).
func quantize(v decimal.Decimal) decimal.Decimal {
	return v.Mul(hundred).Round(0).Div(hundred)
}

// Add returns a + b, cent-exact.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return quantize(a).Add(quantize(b))
}

// Subtract returns a - b, cent-exact.
func Subtract(a, b decimal.Decimal) decimal.Decimal {
	return quantize(a).Sub(quantize(b))
}

// Multiply returns a * b rounded to cents.
func Multiply(a, b decimal.Decimal) decimal.Decimal {
	return quantize(quantize(a).Mul(quantize(b)))
}

// Divide returns a / b rounded to cents. Dividing by zero is a caller
// mistake and fails fast; it never yields Inf or NaN.
func Divide(a, b decimal.Decimal) (decimal.Decimal, error) {
	qb := quantize(b)
	if qb.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return quantize(quantize(a).DivRound(qb, 4)), nil
}

// Round snaps a value to exact cents.
func Round(v decimal.Decimal) decimal.Decimal {
	return quantize(v)
}

// Sum adds any number of values, quantizing each. Zero values (the
// stand-in for missing data) contribute nothing, so aggregates stay
// resilient to partial inputs.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(quantize(v))
	}
	return total
}

// PercentageOf returns pct percent of value, rounded to cents.
func PercentageOf(value, pct decimal.Decimal) decimal.Decimal {
	return quantize(quantize(value).Mul(pct).Div(hundred))
}

// ApplyTax returns amount plus rate-percent tax, rounded to cents.
func ApplyTax(amount, rate decimal.Decimal) decimal.Decimal {
	return Add(quantize(amount), PercentageOf(amount, rate))
}

// RemoveTax returns the net amount of a gross value that already
// includes rate-percent tax, rounded to cents.
func RemoveTax(gross, rate decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	if divisor.IsZero() {
		return decimal.Zero
	}
	return quantize(quantize(gross).DivRound(divisor, 4))
}

// ToCents converts a dollar value to an integer count of cents.
func ToCents(v decimal.Decimal) int64 {
	return v.Mul(hundred).Round(0).IntPart()
}

// FromCents converts an integer count of cents back to dollars.
// FromCents(ToCents(x)) == x for any cent-quantized x.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// FromFloat converts a float64 dollar amount to a cent-exact decimal.
// NaN and Inf are treated as 0, matching the fail-soft contract of the
// display paths this package serves.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return quantize(decimal.NewFromFloat(f))
}

// Parse reads a currency string such as "$1,234.56", "-$500" or the
// accounting-style "($500)". Unparseable input returns 0 rather than an
// error: this function sits on user-facing display paths where a crash
// is worse than a zero.
func Parse(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		v = v.Neg()
	}
	return quantize(v)
}

// Format renders a value as a currency string like "$1,234.56" or
// "-$500.00". Parse(Format(x)) == x for any cent-quantized x.
func Format(v decimal.Decimal) string {
	q := quantize(v)
	sign := ""
	if q.IsNegative() {
		sign = "-"
		q = q.Abs()
	}

	fixed := q.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("$")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(".")
	b.WriteString(fracPart)
	return b.String()
}
