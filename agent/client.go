package agent

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"text/template"

	"github.com/etnz/fsa"
	"github.com/etnz/fsa/renderer"
	"google.golang.org/genai"
)

var (
	// ErrNoAPIKey is returned when no Gemini API key is configured.
	ErrNoAPIKey = errors.New("no Gemini API key")
	// ErrAPI is returned when the provider rejects a request.
	ErrAPI = errors.New("gemini API error")
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("empty response from the model")
	// ErrSessionClosed is returned when using a closed Session.
	ErrSessionClosed = errors.New("session closed")
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultLanguage is the language of the answers when none is configured.
const DefaultLanguage = "English"

//go:embed prompts/*.tmpl
var promptFS embed.FS

var templates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Options configure the calls to the model.
type Options struct {
	Model       string
	Temperature float32
	Language    string
}

func (o Options) model() string {
	if o.Model == "" {
		return DefaultModel
	}
	return o.Model
}

// config returns the generation config, the zero Temperature is the model default.
func (o Options) config() *genai.GenerateContentConfig {
	c := &genai.GenerateContentConfig{}
	if o.Temperature != 0 {
		t := o.Temperature
		c.Temperature = &t
	}
	return c
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Gemini client: %w", err)
	}
	return client, nil
}

// buildPrompt executes the named template for r.
func buildPrompt(name string, o Options, r *fsa.Report) (string, error) {
	language := o.Language
	if language == "" {
		language = DefaultLanguage
	}
	var b bytes.Buffer
	err := templates.ExecuteTemplate(&b, name, map[string]string{
		"Title":    r.Title(),
		"Language": language,
		"Data":     renderer.ContextMarkdown(r),
	})
	if err != nil {
		return "", fmt.Errorf("could not build prompt %s: %w", name, err)
	}
	return b.String(), nil
}

// wrap marks provider rejections with ErrAPI.
func wrap(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %d %s: %s", ErrAPI, apiErr.Code, apiErr.Status, apiErr.Message)
	}
	return err
}
