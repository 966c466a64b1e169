package cmd

import (
	"flag"
	"io"

	"github.com/etnz/fsa/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of the fsa command line.
func Completion() *complete.Command {
	c := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flags(flag.CommandLine),
	}
	for _, cmd := range Commands {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		cmd.SetFlags(fs)
		sub := &complete.Command{Flags: flags(fs)}
		switch cmd.Name() {
		case "analyze", "comment", "assist":
			sub.Args = predict.Files("*.xlsx")
		case "topic":
			topics, _ := docs.GetAllTopics()
			sub.Args = predict.Set(append(topics, "*"))
		}
		c.Sub[cmd.Name()] = sub
	}
	return c
}

// flags predicts the values of the flags in fs.
func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	m := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			m[f.Name] = predict.Nothing
			return
		}
		switch f.Name {
		case "config":
			m[f.Name] = predict.Files("*.yaml")
		case "html":
			m[f.Name] = predict.Files("*.html")
		case "on-duplicate":
			m[f.Name] = predict.Set{"first", "error"}
		default:
			m[f.Name] = predict.Something
		}
	})
	return m
}
