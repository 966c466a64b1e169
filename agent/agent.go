package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Agent is the terminal chat over a Session.
type Agent struct {
	w       io.Writer
	r       *bufio.Reader
	session *Session
	// Print displays an answer, it defaults to writing it as is.
	Print func(answer string)
}

// New creates a new Agent reading user input from r and writing to w.
func New(w io.Writer, r io.Reader, s *Session) *Agent {
	a := &Agent{
		w:       w,
		r:       bufio.NewReader(r),
		session: s,
	}
	a.Print = func(answer string) { fmt.Fprintln(a.w, answer) }
	return a
}

const prompt = "assist> "

// Run starts the REPL. Prompts are sent first, as if typed by the user.
//
// It returns on "bye" or at the end of the input.
func (a *Agent) Run(ctx context.Context, prompts ...string) error {
	fmt.Fprintf(a.w, "Welcome to fsa assist on %s. Type 'bye' to exit.\n", a.session.Report.Title())

	for {
		fmt.Fprint(a.w, prompt)
		var input string

		// Flush prompts from the list and then ask for the user.
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			if input == "" {
				continue
			}
			fmt.Fprintln(a.w, input)
		} else {
			var err error
			input, err = a.r.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(input) == "") {
				if err == io.EOF {
					fmt.Fprintln(a.w)
					return nil // Clean exit on Ctrl+D
				}
				return err
			}
			input = strings.TrimSpace(input)
		}

		switch input {
		case "":
			continue
		case "bye":
			return nil
		}

		answer, err := a.session.Send(ctx, input)
		if err != nil {
			return err
		}
		a.Print(answer)
	}
}
