package fsa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NA is how a Ratio that could not be computed is displayed.
const NA = "N/A"

// Ratio is a ratio that may not be available.
//
// The zero value is not available.
type Ratio struct {
	Value float64
	Valid bool
}

// R returns a valid ratio.
func R(v float64) Ratio { return Ratio{Value: v, Valid: true} }

func (r Ratio) String() string {
	if !r.Valid {
		return NA
	}
	return fmt.Sprintf("%.2f", r.Value)
}

// Sub returns r - s, it is not available if either is not.
func (r Ratio) Sub(s Ratio) Ratio {
	if !r.Valid || !s.Valid {
		return Ratio{}
	}
	return R(r.Value - s.Value)
}

// MarshalJSON encodes the ratio as a number, or as the string "N/A".
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(NA)
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(strconv.Quote(NA))) {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid ratio %s: %w", data, err)
	}
	*r = R(v)
	return nil
}

// LiquiditySnapshot holds the current ratio (current assets over current
// liabilities) of both years.
type LiquiditySnapshot struct {
	Prior   Ratio `json:"prior"`
	Current Ratio `json:"current"`
}

// Available reports whether both ratios could be computed.
func (s LiquiditySnapshot) Available() bool { return s.Prior.Valid && s.Current.Valid }

// Delta returns the change from the prior to the current ratio. It is not
// available unless both ratios are.
func (s LiquiditySnapshot) Delta() Ratio { return s.Current.Sub(s.Prior) }

func (s LiquiditySnapshot) MarshalJSON() ([]byte, error) {
	type snapshot LiquiditySnapshot
	return json.Marshal(struct {
		snapshot
		Delta Ratio `json:"delta"`
	}{snapshot(s), s.Delta()})
}

// LiquidityRatio computes the current ratio of both years.
//
// If a row is missing, or ambiguous under OnDuplicateError, both ratios are
// not available: this is never an error. A zero liability is replaced by
// Epsilon, like every denominator in this package.
func LiquidityRatio(rows []Row, currentAssets, currentLiabilities Matcher, onDuplicate DuplicatePolicy) LiquiditySnapshot {
	ca, err := currentAssets.Find(rows, onDuplicate)
	if err != nil {
		return LiquiditySnapshot{}
	}
	cl, err := currentLiabilities.Find(rows, onDuplicate)
	if err != nil {
		return LiquiditySnapshot{}
	}
	a, l := rows[ca], rows[cl]
	return LiquiditySnapshot{
		Prior:   R(finite(coerce(a.Prior) / guard(coerce(l.Prior)))),
		Current: R(finite(coerce(a.Current) / guard(coerce(l.Current)))),
	}
}

// SignedString returns the ratio with an explicit sign, or "N/A".
func (r Ratio) SignedString() string {
	if !r.Valid {
		return NA
	}
	return fmt.Sprintf("%+.2f", r.Value)
}
