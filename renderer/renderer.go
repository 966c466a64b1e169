// Package renderer turns reports into markdown, HTML and JSON.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/page.html"))

// converter handles GitHub flavored tables.
var converter = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders markdown documents into a standalone HTML page.
//
// commentary is optional, it is appended in its own section.
func HTML(title, markdown, commentary string) (string, error) {
	body, err := toHTML(markdown)
	if err != nil {
		return "", err
	}
	data := struct {
		Title      string
		Body       template.HTML
		Commentary template.HTML
	}{Title: title, Body: body}

	if commentary != "" {
		if data.Commentary, err = toHTML(commentary); err != nil {
			return "", err
		}
	}

	var b bytes.Buffer
	if err := page.Execute(&b, data); err != nil {
		return "", fmt.Errorf("error executing page template: %w", err)
	}
	return b.String(), nil
}

// toHTML converts markdown into HTML.
//
// goldmark does not render raw HTML by default, so the result is safe to embed.
func toHTML(markdown string) (template.HTML, error) {
	var b bytes.Buffer
	if err := converter.Convert([]byte(markdown), &b); err != nil {
		return "", fmt.Errorf("error converting markdown: %w", err)
	}
	return template.HTML(b.String()), nil
}
