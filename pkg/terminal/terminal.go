// Package terminal provides console rendering helpers: width detection,
// separators, truncation and risk coloring.
package terminal

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/jarfang/pkg/metrics"
)

// Width bounds.
const (
	DefaultWidth = 80
	MinWidth     = 60
	MaxWidth     = 120
)

// Separator runes.
const (
	HeavyRule = '═'
	LightRule = '─'
)

// Ellipsis is appended to truncated strings.
const Ellipsis = "..."

// Config holds terminal rendering configuration.
type Config struct {
	Width   int
	NoColor bool
}

// NewConfig reads COLUMNS and NO_COLOR from the environment.
func NewConfig() Config {
	return Config{
		Width:   DetectWidth(),
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// DetectWidth returns COLUMNS clamped to [MinWidth, MaxWidth], or
// DefaultWidth when unset or invalid.
func DetectWidth() int {
	width, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || width <= 0 {
		return DefaultWidth
	}

	return min(max(width, MinWidth), MaxWidth)
}

// Rule repeats r n times.
func Rule(r rune, n int) string {
	return strings.Repeat(string(r), n)
}

// Colorize wraps text in the given attributes unless NoColor is set.
func (c Config) Colorize(text string, attrs ...color.Attribute) string {
	if c.NoColor || len(attrs) == 0 {
		return text
	}

	painter := color.New(attrs...)
	painter.EnableColor()

	return painter.Sprint(text)
}

// RiskColor maps a risk level to a foreground color.
func RiskColor(level metrics.RiskLevel) color.Attribute {
	switch level {
	case metrics.RiskCritical:
		return color.FgHiRed
	case metrics.RiskHigh:
		return color.FgRed
	case metrics.RiskMedium:
		return color.FgYellow
	default:
		return color.FgGreen
	}
}

// Truncate shortens s to at most width runes, ending in "..." when cut.
func Truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}

	if width <= len(Ellipsis) {
		return strings.Repeat(".", max(width, 0))
	}

	runes := []rune(s)

	return string(runes[:width-len(Ellipsis)]) + Ellipsis
}
