package renderer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/fsa"
)

// ContextMarkdown renders the report for a language model: raw values, a
// plain markdown table and the liquidity ratios.
//
// The output is an opaque context, nothing parses it back.
func ContextMarkdown(r *fsa.Report) string {
	h := header(r)
	var b strings.Builder
	fmt.Fprintf(&b, "| %s | %s | %s | Growth (%%) | Share %s (%%) | Share %s (%%) |\n", h[0], h[1], h[2], h[1], h[2])
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
	for _, d := range r.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %.2f | %.2f |\n",
			escape(d.Label),
			raw(d.Prior),
			raw(d.Current),
			float64(d.Growth),
			float64(d.PriorShare),
			float64(d.CurrentShare),
		)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Current ratio (%s): %s\n", h[1], r.Liquidity.Prior)
	fmt.Fprintf(&b, "Current ratio (%s): %s\n", h[2], r.Liquidity.Current)
	return b.String()
}

func raw(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
