// Package report renders analysis results as text, compact text, JSON, YAML
// or an HTML chart page.
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/terminal"
)

// Output formats.
const (
	FormatText    = "text"
	FormatCompact = "compact"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatPlot    = "plot"
)

// DefaultTop is the number of classes shown in rankings.
const DefaultTop = 10

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []string {
	return []string{FormatText, FormatCompact, FormatJSON, FormatYAML, FormatPlot}
}

// Options controls rendering.
type Options struct {
	// Top bounds class rankings. Zero or less uses DefaultTop.
	Top int
	// NoColor disables ANSI colors in text output.
	NoColor bool
	// Width is the console width the class table is fitted to. Zero uses
	// terminal.DefaultWidth.
	Width int
}

func (o Options) terminal() terminal.Config {
	width := o.Width
	if width <= 0 {
		width = terminal.DefaultWidth
	}

	return terminal.Config{Width: width, NoColor: o.NoColor}
}

func (o Options) top() int {
	if o.Top > 0 {
		return o.Top
	}

	return DefaultTop
}

// ValidateFormat returns ErrUnknownFormat unless format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats(), format) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}

	return nil
}

// Write renders result in format to w.
func Write(w io.Writer, format string, result analysis.Result, opts Options) error {
	switch format {
	case FormatText:
		return Text(w, result, opts)
	case FormatCompact:
		return Compact(w, result)
	case FormatJSON:
		return JSON(w, result)
	case FormatYAML:
		return YAML(w, result)
	case FormatPlot:
		return Plot(w, result, opts.top())
	default:
		return ValidateFormat(format)
	}
}
