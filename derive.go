package fsa

import "math"

// Epsilon replaces a zero denominator.
//
// Dividing by Epsilon yields a very large but finite number, so that a ratio
// over a zero value never fails.
const Epsilon = 1e-9

// guard returns x, or Epsilon if x is zero.
func guard(x float64) float64 {
	if x == 0 {
		return Epsilon
	}
	return x
}

// finite clamps an overflowed ratio to the largest float64 of its sign.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// DerivedRow is a line item with its derived metrics.
type DerivedRow struct {
	Row
	// Growth is the change from Prior to Current, relative to Prior.
	Growth Percent `json:"growth"`
	// PriorShare is Prior relative to the total assets of the prior year.
	PriorShare Percent `json:"prior_share"`
	// CurrentShare is Current relative to the total assets of the current year.
	CurrentShare Percent `json:"current_share"`
}

// DeriveMetrics computes the growth and the share of total assets of every row.
//
// totalAssets identifies the total assets row, it must match exactly one row
// (see DuplicatePolicy), otherwise it fails with ErrMissingRequiredRow or
// ErrDuplicateRow.
//
// The returned rows are in the same order as rows, which is not modified.
func DeriveMetrics(rows []Row, totalAssets Matcher, onDuplicate DuplicatePolicy) ([]DerivedRow, error) {
	derived := make([]DerivedRow, len(rows))
	for i, r := range rows {
		r.Prior, r.Current = coerce(r.Prior), coerce(r.Current)
		derived[i] = DerivedRow{
			Row:    r,
			Growth: Percent(finite((r.Current - r.Prior) / guard(r.Prior) * 100)),
		}
	}

	at, err := totalAssets.Find(rows, onDuplicate)
	if err != nil {
		return nil, err
	}
	totalPrior := guard(derived[at].Prior)
	totalCurrent := guard(derived[at].Current)

	for i := range derived {
		d := &derived[i]
		d.PriorShare = Percent(finite(d.Prior / totalPrior * 100))
		d.CurrentShare = Percent(finite(d.Current / totalCurrent * 100))
	}
	return derived, nil
}
