package renderer

import (
	"bytes"
	"strings"

	"github.com/etnz/fsa"
	md "github.com/nao1215/markdown"
)

// ReportMarkdown renders the report for display: amounts with thousands
// separators, percentages with two decimals.
func ReportMarkdown(r *fsa.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	h := header(r)
	doc.H1(r.Title())

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{
			h[0],
			h[1],
			h[2],
			"Growth",
			"Share " + h[1],
			"Share " + h[2],
		},
	}
	for _, d := range r.Rows {
		table.Rows = append(table.Rows, []string{
			escape(d.Label),
			fsa.Amount(d.Prior).String(),
			fsa.Amount(d.Current).String(),
			d.Growth.SignedString(),
			d.PriorShare.String(),
			d.CurrentShare.String(),
		})
	}
	doc.Table(table)

	doc.H2("Liquidity")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Current ratio", h[1], h[2], "Change"},
		Rows: [][]string{{
			"Current assets / Current liabilities",
			r.Liquidity.Prior.String(),
			r.Liquidity.Current.String(),
			r.Liquidity.Delta().SignedString(),
		}},
	})

	if len(r.Warnings) > 0 {
		doc.H2("Warnings")
		doc.BulletList(r.Warnings...)
	}

	return doc.String()
}

// header returns the column titles, using defaults for blank ones.
func header(r *fsa.Report) [3]string {
	h := r.Header
	for i := range h {
		if strings.TrimSpace(h[i]) == "" {
			h[i] = fsa.DefaultHeader[i]
		}
		h[i] = escape(h[i])
	}
	return h
}

// escape protects markdown table cells.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
