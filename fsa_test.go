package fsa

import "github.com/google/go-cmp/cmp"

// balanceSheet is the example statement used across tests.
func balanceSheet() []Row {
	return []Row{
		{"TOTAL ASSETS", 1000, 1200},
		{"CURRENT ASSETS", 400, 600},
		{"CURRENT LIABILITIES", 200, 300},
	}
}

// approx compares percentages with the Percent precision.
var approx = cmp.Comparer(func(a, b Percent) bool { return a.Equal(b) })
