package fsa

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one line item of a financial statement.
type Row struct {
	Label   string  `json:"label"`
	Prior   float64 `json:"prior"`
	Current float64 `json:"current"`
}

// Statement is an ordered list of line items, as loaded from a single source.
//
// Row order is the display order, it has no computational meaning.
type Statement struct {
	Source string // file name the statement was read from, if any.
	Sheet  string // sheet name the statement was read from, if any.
	// Header holds the original titles of the three columns.
	Header [3]string
	Rows   []Row
	// Coerced counts the values that could not be parsed and were replaced by 0.
	Coerced int
}

// NewStatement creates a Statement from rows, using default column titles.
func NewStatement(rows ...Row) *Statement {
	return &Statement{
		Header: DefaultHeader,
		Rows:   rows,
	}
}

// DefaultHeader are the column titles used when the source has none.
var DefaultHeader = [3]string{"Line item", "Prior year", "Current year"}

// ParseValue parses a cell value as a number.
//
// Surrounding blanks are ignored. Anything that is not a decimal number
// (including an empty cell) or that overflows a float64 is 0, and ok is false.
func ParseValue(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	v = d.InexactFloat64()
	if coerce(v) != v {
		return 0, false
	}
	return v, true
}

// coerce replaces values that are not usable numbers by 0.
func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
