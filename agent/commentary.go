package agent

import (
	"context"
	"fmt"

	"github.com/etnz/fsa"
	"google.golang.org/genai"
)

// Generator generates content in one shot, *genai.Models is one.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Commentator asks a model for an analyst commentary of a report.
type Commentator struct {
	Models  Generator
	Options Options
}

// NewCommentator returns a Commentator using client.
func NewCommentator(client *genai.Client, o Options) *Commentator {
	return &Commentator{Models: client.Models, Options: o}
}

// Comment returns the commentary of r as markdown.
func (c *Commentator) Comment(ctx context.Context, r *fsa.Report) (string, error) {
	if c == nil || c.Models == nil {
		return "", ErrNoAPIKey
	}
	p, err := buildPrompt("commentary.tmpl", c.Options, r)
	if err != nil {
		return "", err
	}
	resp, err := c.Models.GenerateContent(ctx, c.Options.model(), genai.Text(p), c.Options.config())
	if err != nil {
		return "", fmt.Errorf("could not comment %q: %w", r.Title(), wrap(err))
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
