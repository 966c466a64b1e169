package fsa

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is a raw statement value, displayed with thousands separators.
type Amount float64

// amountFormatter prints whole units, no currency symbol.
var amountFormatter = money.NewFormatter(0, ".", ",", "", "1")

// bounds of the minor units the money formatter can hold.
var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// String returns the amount rounded to the unit, with thousands separators.
func (a Amount) String() string {
	return a.Format(0)
}

// Format returns the amount rounded to fraction digits, with thousands separators.
func (a Amount) Format(fraction int) string {
	d := decimal.NewFromFloat(coerce(float64(a))).Round(int32(fraction))
	units := d.Shift(int32(fraction))
	if units.GreaterThan(maxUnits) || units.LessThan(minUnits) {
		return group(d.StringFixed(int32(fraction)))
	}
	f := amountFormatter
	if fraction != 0 {
		f = money.NewFormatter(fraction, ".", ",", "", "1")
	}
	return f.Format(units.IntPart())
}

// group inserts thousands separators in the integer part of a plain decimal string.
func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	integer, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, c := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteString("." + frac)
	}
	return b.String()
}
