// Package cmd implements the CLI application to analyze financial statements.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/etnz/fsa"
	"github.com/etnz/fsa/config"
	"github.com/google/subcommands"
)

// Commands are the subcommands of fsa.
var Commands = []subcommands.Command{
	&analyzeCmd{},
	&commentCmd{},
	&assistCmd{},
	&serveCmd{},
	&topicCmd{},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd, "")
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", os.Getenv(EnvConfigFile), "Path to a YAML configuration file")
	onDuplicate = flag.String("on-duplicate", os.Getenv(EnvOnDuplicate), "What to do when several line items match a required row: 'first' or 'error'. Overrides the configuration.")
	Verbose     = flag.Bool("v", envBool(EnvVerbose), "Print debug logs")
)

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// Logger returns the logger of the application, on stderr.
func Logger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "fsa",
		ReportTimestamp: true,
	})
	if *Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// LoadConfig loads the configuration from the global flags and the environment.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *onDuplicate != "" {
		if err := cfg.OnDuplicate.Set(*onDuplicate); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadReport reads and analyzes the workbook file.
func loadReport(cfg *config.Config, logger *log.Logger, file, sheet string) (*fsa.Report, error) {
	stmt, err := fsa.OpenWorkbook(file, fsa.ReadOptions{Sheet: sheet})
	if err != nil {
		return nil, err
	}
	logger.Debug("statement loaded", "file", file, "sheet", stmt.Sheet, "rows", len(stmt.Rows), "coerced", stmt.Coerced)

	report, err := cfg.Analyzer().Analyze(stmt)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		logger.Warn(w)
	}
	return report, nil
}

// printMarkdown displays markdown on stdout, styled for the terminal.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
