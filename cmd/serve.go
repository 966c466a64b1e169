package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/fsa/agent"
	"github.com/etnz/fsa/server"
	"github.com/google/subcommands"
)

// serveCmd holds the flags for the 'serve' subcommand.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the analysis dashboard API over HTTP" }
func (*serveCmd) Usage() string {
	return `fsa serve [-addr <host:port>]

  Serves the dashboard API: upload workbooks, get their analysis, ask for a
  commentary and chat about them. See 'fsa topic serve'.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Address to listen on, overrides the configuration")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}
	logger := Logger()

	var opts []server.Option
	if client, err := agent.NewClient(ctx, cfg.AI.APIKey); err != nil {
		logger.Warn("AI routes disabled", "err", err)
	} else {
		opts = append(opts, server.WithAI(agent.NewCommentator(client, cfg.AgentOptions()), agent.GeminiChats(client)))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.New(cfg, logger, opts...).ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
