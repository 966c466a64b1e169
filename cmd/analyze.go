package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/fsa/renderer"
	"github.com/google/subcommands"
)

// analyzeCmd holds the flags for the 'analyze' subcommand.
type analyzeCmd struct {
	sheet string
	json  bool
	query string
	html  string

	stdout io.Writer    // defaults to os.Stdout
	output func(string) // prints markdown, defaults to printMarkdown
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "display the growth, structure and liquidity of a statement" }
func (*analyzeCmd) Usage() string {
	return `fsa analyze [-sheet <name>] [-json] [-q <jsonpath>] [-html <file>] <file.xlsx>

  Reads the statement in the workbook (line item, prior year, current year)
  and displays, for every line item, its growth rate and its share of the
  total assets, followed by the current ratio of both years.

  See 'fsa topic workbook' for the expected layout.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sheet, "sheet", "", "Sheet to read, defaults to the first one")
	f.BoolVar(&c.json, "json", false, "Print the report as JSON")
	f.StringVar(&c.query, "q", "", "Print only the value selected by this JSONPath expression, e.g. '$.liquidity.current'")
	f.StringVar(&c.html, "html", "", "Also write the report as an HTML page to this file")
}

func (c *analyzeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one workbook file")
		return subcommands.ExitUsageError
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.output == nil {
		c.output = printMarkdown
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	report, err := loadReport(cfg, Logger(), f.Arg(0), c.sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	md := renderer.ReportMarkdown(report)
	if c.html != "" {
		page, err := renderer.HTML(report.Title(), md, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.html, []byte(page), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.html, err)
			return subcommands.ExitFailure
		}
	}

	switch {
	case c.query != "":
		v, err := renderer.Query(report, c.query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying report: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(c.stdout, renderer.FormatValue(v))
	case c.json:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(c.stdout, string(data))
	default:
		c.output(md)
	}
	return subcommands.ExitSuccess
}
