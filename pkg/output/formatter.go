// Package output renders command results for the terminal.
package output

import (
	"fmt"
	"io"
	"sort"
)

// Formatter writes data in one output format.
type Formatter interface {
	// Format writes data to w.
	Format(w io.Writer, data interface{}, config *FormatConfig) error

	// Name returns the name of the formatter (e.g., "json", "yaml").
	Name() string
}

// FormatConfig contains configuration options for formatting output.
type FormatConfig struct {
	// Pretty enables indentation.
	Pretty bool
	// Compact removes all optional whitespace. It wins over Pretty.
	Compact bool
}

// NewFormatConfig creates a new FormatConfig with sensible defaults.
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{Pretty: true}
}

var formatters = map[string]func() Formatter{
	"json": func() Formatter { return NewJSONFormatter() },
	"yaml": func() Formatter { return NewYAMLFormatter() },
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	ctor, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, Names())
	}
	return ctor(), nil
}

// Names lists the available formats.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
