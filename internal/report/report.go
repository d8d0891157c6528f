// Package report renders analysis results as text, JSON, YAML or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewatch/internal/model"
)

// Format is an output format
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or common alias
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json, yaml or markdown)", s)
}

// FormatForPath picks a format from an output file extension
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return FormatText
}

// Ext returns the file extension written for f
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	}
	return ".txt"
}

// Renderer writes reports
type Renderer struct {
	includeFooter bool
	color         bool
}

// NewRenderer creates a renderer. Colour is off until enabled with WithColor.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WithColor returns a copy of the renderer with terminal colours on or off
func (r *Renderer) WithColor(on bool) *Renderer {
	out := *r
	out.color = on
	return &out
}

// Render writes result to w in format f
func (r *Renderer) Render(w io.Writer, f Format, result *model.AnalysisResult) error {
	switch f {
	case FormatJSON:
		return r.RenderJSON(w, result)
	case FormatYAML:
		return r.RenderYAML(w, result)
	case FormatMarkdown:
		return r.RenderMarkdown(w, result)
	case FormatText, "":
		return r.RenderText(w, result)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// RenderJSON writes the full result: text, clauses, matches and category summary
func (r *Renderer) RenderJSON(w io.Writer, result *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// RenderYAML writes the full result as YAML
func (r *Renderer) RenderYAML(w io.Writer, result *model.AnalysisResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteFile renders result into path, choosing the format from the extension.
// Files never contain colour codes.
func (r *Renderer) WriteFile(path string, result *model.AnalysisResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	plain := r.WithColor(false)
	if err := plain.Render(f, FormatForPath(path), result); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
