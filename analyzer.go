package fsa

import (
	"fmt"
	"strings"
)

// Default markers, in Vietnamese and English.
var (
	DefaultTotalAssets        = []string{"TỔNG CỘNG TÀI SẢN", "TOTAL ASSETS"}
	DefaultCurrentAssets      = []string{"TÀI SẢN NGẮN HẠN", "CURRENT ASSETS"}
	DefaultCurrentLiabilities = []string{"NỢ NGẮN HẠN", "CURRENT LIABILITIES"}
)

// Analyzer computes a Report from a Statement.
type Analyzer struct {
	TotalAssets        Matcher
	CurrentAssets      Matcher
	CurrentLiabilities Matcher
	OnDuplicate        DuplicatePolicy
}

// DefaultAnalyzer returns an Analyzer using the default markers, where the
// first matching line item wins.
func DefaultAnalyzer() Analyzer {
	return Analyzer{
		TotalAssets:        NewMatcher(DefaultTotalAssets...),
		CurrentAssets:      NewMatcher(DefaultCurrentAssets...),
		CurrentLiabilities: NewMatcher(DefaultCurrentLiabilities...),
		OnDuplicate:        OnDuplicateFirst,
	}
}

// Report is the analysis of a Statement.
type Report struct {
	Source    string            `json:"source,omitempty"`
	Sheet     string            `json:"sheet,omitempty"`
	Header    [3]string         `json:"header"`
	Rows      []DerivedRow      `json:"rows"`
	Liquidity LiquiditySnapshot `json:"liquidity"`
	// Warnings are anomalies absorbed by the analysis, for the user to review.
	Warnings []string `json:"warnings,omitempty"`
}

// Analyze derives the metrics and the liquidity of s.
//
// It fails only if the total assets row cannot be found, see DeriveMetrics.
func (a Analyzer) Analyze(s *Statement) (*Report, error) {
	rows, err := DeriveMetrics(s.Rows, a.TotalAssets, a.OnDuplicate)
	if err != nil {
		return nil, err
	}
	r := &Report{
		Source:    s.Source,
		Sheet:     s.Sheet,
		Header:    s.Header,
		Rows:      rows,
		Liquidity: LiquidityRatio(s.Rows, a.CurrentAssets, a.CurrentLiabilities, a.OnDuplicate),
	}

	if s.Coerced > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d value(s) were not numbers and were replaced by 0", s.Coerced))
	}
	for _, m := range []struct {
		name string
		m    Matcher
	}{
		{"total assets", a.TotalAssets},
		{"current assets", a.CurrentAssets},
		{"current liabilities", a.CurrentLiabilities},
	} {
		idx := m.m.Matches(s.Rows)
		switch {
		case len(idx) == 0:
			r.Warnings = append(r.Warnings, fmt.Sprintf("no %s line item (%v): liquidity is %s", m.name, m.m, NA))
		case len(idx) > 1 && a.OnDuplicate == OnDuplicateFirst:
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d line items match %s (%v), using %q",
				len(idx), m.name, m.m, s.Rows[idx[0]].Label))
		case len(idx) > 1:
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d line items match %s (%v): liquidity is %s",
				len(idx), m.name, m.m, NA))
		}
	}
	return r, nil
}

// Row returns the first derived row whose label contains label, ignoring case.
func (r *Report) Row(label string) (DerivedRow, bool) {
	m := NewMatcher(label)
	for _, d := range r.Rows {
		if m.Match(d.Label) {
			return d, true
		}
	}
	return DerivedRow{}, false
}

// Title returns a short human title for the report.
func (r *Report) Title() string {
	parts := []string{"Financial Statement Analysis"}
	if r.Source != "" {
		parts = append(parts, r.Source)
	}
	if r.Sheet != "" {
		parts = append(parts, r.Sheet)
	}
	return strings.Join(parts, " - ")
}
