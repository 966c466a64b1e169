package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fsa/agent"
	"github.com/google/subcommands"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	sheet string
}

func (*assistCmd) Name() string { return "assist" }
func (*assistCmd) Synopsis() string {
	return "chat with the AI assistant about a statement"
}
func (*assistCmd) Usage() string {
	return `fsa assist [-sheet <name>] <file.xlsx> [prompt...]

  Starts an interactive session with the AI assistant, which knows the
  analysis of the statement. The optional prompt is sent first.
  Type 'bye' to exit.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sheet, "sheet", "", "Sheet to read, defaults to the first one")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a workbook file")
		return subcommands.ExitUsageError
	}
	initialPrompt := strings.Join(f.Args()[1:], " ")

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

	client, err := agent.NewClient(ctx, cfg.AI.APIKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}
	session, err := agent.NewSession(ctx, agent.GeminiChats(client), cfg.AgentOptions(), report)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting the chat:", err)
		return subcommands.ExitFailure
	}
	defer session.Close()

	a := agent.New(os.Stdout, os.Stdin, session)
	a.Print = printMarkdown
	if err := a.Run(ctx, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
