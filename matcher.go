package fsa

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrMissingRequiredRow is returned when no line item matches a required marker.
	ErrMissingRequiredRow = errors.New("missing required row")
	// ErrDuplicateRow is returned when several line items match a marker and the
	// DuplicatePolicy is OnDuplicateError.
	ErrDuplicateRow = errors.New("duplicate row")
)

// Matcher identifies a line item by its label.
//
// A label matches if it contains any of the markers, ignoring case and Unicode
// composition.
type Matcher struct {
	markers []string // as written by the user, for messages.
	folded  []string
}

// NewMatcher returns a Matcher for the given markers. Blank markers are ignored.
func NewMatcher(markers ...string) Matcher {
	var m Matcher
	for _, s := range markers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		m.markers = append(m.markers, s)
		m.folded = append(m.folded, fold(s))
	}
	return m
}

// fold puts s in a canonical form for case-insensitive comparison.
func fold(s string) string {
	// a Caser is stateful, so there is one per call.
	return cases.Fold().String(norm.NFC.String(s))
}

// Markers returns the markers of this matcher.
func (m Matcher) Markers() []string { return append([]string(nil), m.markers...) }

// IsZero reports whether m has no markers, and therefore matches nothing.
func (m Matcher) IsZero() bool { return len(m.markers) == 0 }

// Match reports whether label contains one of the markers.
func (m Matcher) Match(label string) bool {
	if m.IsZero() {
		return false
	}
	l := fold(label)
	for _, f := range m.folded {
		if strings.Contains(l, f) {
			return true
		}
	}
	return false
}

func (m Matcher) String() string {
	quoted := make([]string, len(m.markers))
	for i, s := range m.markers {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " or ")
}

// Matches returns the index of every row matching m, in order.
func (m Matcher) Matches(rows []Row) []int {
	var idx []int
	for i, r := range rows {
		if m.Match(r.Label) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Find returns the index of the row matching m.
//
// It fails with ErrMissingRequiredRow if there is none. If there are several,
// the policy decides: OnDuplicateFirst returns the first one, OnDuplicateError
// fails with ErrDuplicateRow.
func (m Matcher) Find(rows []Row, policy DuplicatePolicy) (int, error) {
	idx := m.Matches(rows)
	switch {
	case len(idx) == 0:
		return -1, fmt.Errorf("%w: no line item matches %v", ErrMissingRequiredRow, m)
	case len(idx) > 1 && policy == OnDuplicateError:
		return -1, fmt.Errorf("%w: %d line items match %v", ErrDuplicateRow, len(idx), m)
	}
	return idx[0], nil
}

// DuplicatePolicy tells what to do when several line items match the same marker.
type DuplicatePolicy int

const (
	// OnDuplicateFirst uses the first matching line item.
	OnDuplicateFirst DuplicatePolicy = iota
	// OnDuplicateError fails the lookup.
	OnDuplicateError
)

var duplicatePolicies = [...]string{
	OnDuplicateFirst: "first",
	OnDuplicateError: "error",
}

func (p DuplicatePolicy) String() string {
	if p < 0 || int(p) >= len(duplicatePolicies) {
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
	return duplicatePolicies[p]
}

// ParseDuplicatePolicy parses "first" or "error".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	for p, name := range duplicatePolicies {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return DuplicatePolicy(p), nil
		}
	}
	return OnDuplicateFirst, fmt.Errorf("invalid duplicate policy %q, expected one of %q", s, duplicatePolicies[:])
}

func (p DuplicatePolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *DuplicatePolicy) UnmarshalText(text []byte) error {
	v, err := ParseDuplicatePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Set implements flag.Value.
func (p *DuplicatePolicy) Set(s string) error { return p.UnmarshalText([]byte(s)) }
