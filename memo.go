package fsa

import (
	"crypto/sha1"
	"fmt"
	"math"
	"sync"
)

// Memo caches reports by statement content.
//
// Analyze is a pure function of the statement and the analyzer, so two
// uploads of the same table share the same report. Its zero value is not
// usable, see NewMemo.
type Memo struct {
	mu       sync.Mutex
	capacity int
	reports  map[string]*Report
	order    []string // keys, oldest first.
}

// NewMemo creates a Memo holding at most capacity reports.
func NewMemo(capacity int) *Memo {
	if capacity < 1 {
		capacity = 1
	}
	return &Memo{
		capacity: capacity,
		reports:  make(map[string]*Report),
	}
}

// Analyze returns the cached report for s, or computes it with a.
//
// Errors are not cached. The returned report is shared, callers must not
// modify it.
func (m *Memo) Analyze(a Analyzer, s *Statement) (r *Report, hit bool, err error) {
	key := memoKey(a, s)

	m.mu.Lock()
	r, hit = m.reports[key]
	m.mu.Unlock()
	if hit {
		return r, true, nil
	}

	r, err = a.Analyze(s)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[key]; !exists {
		m.reports[key] = r
		m.order = append(m.order, key)
		for len(m.order) > m.capacity {
			delete(m.reports, m.order[0])
			m.order = m.order[1:]
		}
	}
	return r, false, nil
}

// Len returns the number of cached reports.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// memoKey identifies everything Analyze depends on.
func memoKey(a Analyzer, s *Statement) string {
	h := sha1.New()
	fmt.Fprintf(h, "%q|%q|%q|%v\n", a.TotalAssets.markers, a.CurrentAssets.markers, a.CurrentLiabilities.markers, a.OnDuplicate)
	fmt.Fprintf(h, "%q|%q|%q|%d\n", s.Source, s.Sheet, s.Header, s.Coerced)
	for _, r := range s.Rows {
		fmt.Fprintf(h, "%q|%x|%x\n", r.Label, math.Float64bits(r.Prior), math.Float64bits(r.Current))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
