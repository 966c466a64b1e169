package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fsa/agent"
	"github.com/etnz/fsa/renderer"
	"github.com/google/subcommands"
)

// commentCmd holds the flags for the 'comment' subcommand.
type commentCmd struct {
	sheet string
	html  string
}

func (*commentCmd) Name() string     { return "comment" }
func (*commentCmd) Synopsis() string { return "ask the AI for an analyst commentary of a statement" }
func (*commentCmd) Usage() string {
	return `fsa comment [-sheet <name>] [-html <file>] <file.xlsx>

  Sends the analysis of the statement to Gemini and displays its commentary
  on growth, asset structure and liquidity.

  Requires a Gemini API key, see 'fsa topic configuration'.
`
}

func (c *commentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sheet, "sheet", "", "Sheet to read, defaults to the first one")
	f.StringVar(&c.html, "html", "", "Also write the report and its commentary as an HTML page to this file")
}

func (c *commentCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one workbook file")
		return subcommands.ExitUsageError
	}
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := Logger()
	report, err := loadReport(cfg, logger, f.Arg(0), c.sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	client, err := agent.NewClient(ctx, cfg.AI.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing Gemini's client: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.Debug("asking for a commentary", "model", cfg.AI.Model)
	commentary, err := agent.NewCommentator(client, cfg.AgentOptions()).Comment(ctx, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting the commentary: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.html != "" {
		page, err := renderer.HTML(report.Title(), renderer.ReportMarkdown(report), commentary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.html, []byte(page), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.html, err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown("# Commentary\n\n" + commentary)
	return subcommands.ExitSuccess
}
