// Package output renders run results as JSON, YAML, Markdown, or plain text
// and chooses a format when the caller does not name one.
//
// Formatters are pure: they return bytes and never touch the filesystem.
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/envoy/internal/workflow"
)

// ErrUnknownFormat is returned for format names no formatter handles.
var ErrUnknownFormat = errors.New("unknown output format")

// Format names an output representation.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	Text     Format = "txt"

	// Auto defers the choice to the Selector.
	Auto Format = "auto"
)

// Formatter renders a result document.
type Formatter interface {
	Format(res *workflow.Result) ([]byte, error)
	Extension() string
}

var formatters = map[Format]func() Formatter{
	JSON:     func() Formatter { return jsonFormatter{} },
	YAML:     func() Formatter { return yamlFormatter{} },
	Markdown: func() Formatter { return markdownFormatter{} },
	Text:     func() Formatter { return textFormatter{} },
}

// New returns the formatter for f.
func New(f Format) (Formatter, error) {
	ctor, ok := formatters[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, f, strings.Join(names(), ", "))
	}
	return ctor(), nil
}

// Formats lists the concrete formats in a stable order.
func Formats() []Format {
	return []Format{JSON, YAML, Markdown, Text}
}

// ParseFormat normalizes a user-supplied format name.
// An empty name is Auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: auto, %s)", ErrUnknownFormat, s, strings.Join(names(), ", "))
	}
}

// Render resolves the format for res and renders it. override may be Auto.
// The chosen format and the deciding rule ("override" for explicit formats)
// are returned with the payload.
func Render(res *workflow.Result, override Format, sel *Selector) ([]byte, Format, string, error) {
	format, rule := override, "override"
	if override == Auto || override == "" {
		format, rule = sel.Select(res)
	}

	f, err := New(format)
	if err != nil {
		return nil, "", "", err
	}

	data, err := f.Format(res)
	if err != nil {
		return nil, "", "", fmt.Errorf("render %s: %w", format, err)
	}
	return data, format, rule, nil
}

func names() []string {
	out := make([]string, 0, len(formatters))
	for _, f := range Formats() {
		out = append(out, string(f))
	}
	return out
}
