package report

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/metrics"
	"github.com/Sumatoshi-tech/jarfang/pkg/terminal"
)

const (
	ruleWidth = 60
	// classColReserve is the width taken by every class table column but
	// the first.
	classColReserve = 32
	minClassCol     = 16
	digestPrefix    = 12
)

// Text writes the console report. Per-class rankings and skipped entries
// are appended when the result carries them.
func Text(w io.Writer, result analysis.Result, opts Options) error {
	bw := bufio.NewWriter(w)
	term := opts.terminal()
	heavy := terminal.Rule(terminal.HeavyRule, ruleWidth)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw, term.Colorize("  JAR BYTECODE ANALYSIS REPORT", color.Bold))
	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "  File: %s\n", result.JarFileName)
	writeArchive(bw, result.Archive)
	fmt.Fprintf(bw, "  Total classes: %d\n", result.TotalClasses)
	fmt.Fprintf(bw, "  Total interfaces: %d\n", result.TotalInterfaces)
	fmt.Fprintln(bw)

	section(bw, term, "INHERITANCE METRICS")
	fmt.Fprintf(bw, "  Maximum inheritance depth: %d\n", result.Inheritance.MaxDepth)
	fmt.Fprintf(bw, "  Average inheritance depth: %.2f\n", result.Inheritance.AverageDepth)
	fmt.Fprintln(bw)

	section(bw, term, "ABC METRICS")
	fmt.Fprintf(bw, "  Assignments (A): %d\n", result.ABC.TotalAssignments)
	fmt.Fprintf(bw, "  Branches (B): %d\n", result.ABC.TotalBranches)
	fmt.Fprintf(bw, "  Conditions/Calls (C): %d\n", result.ABC.TotalConditions)
	fmt.Fprintf(bw, "  ABC Magnitude: %.2f\n", result.ABC.Magnitude)
	fmt.Fprintln(bw)

	section(bw, term, "CLASS STRUCTURE METRICS")
	fmt.Fprintf(bw, "  Average overridden methods per class: %.2f\n", result.AverageOverriddenMethods)
	fmt.Fprintf(bw, "  Average fields per class: %.2f\n", result.AverageFieldsPerClass)
	fmt.Fprintln(bw)

	if len(result.Classes) > 0 {
		section(bw, term, fmt.Sprintf("TOP CLASSES BY ABC MAGNITUDE (%d of %d)",
			min(opts.top(), len(result.Classes)), len(result.Classes)))
		fmt.Fprintln(bw, classTable(result.TopClasses(opts.top()), term))
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "  Risk: %s\n", riskSummary(result, term))
		fmt.Fprintln(bw)
	}

	if len(result.SkippedEntries) > 0 {
		section(bw, term, fmt.Sprintf("SKIPPED ENTRIES (%d)", len(result.SkippedEntries)))

		for _, s := range result.SkippedEntries {
			fmt.Fprintf(bw, "  %s [%s]: %s\n", s.Name, s.Reason, s.Error)
		}

		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, heavy)

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func section(w io.Writer, term terminal.Config, title string) {
	light := terminal.Rule(terminal.LightRule, ruleWidth)

	fmt.Fprintln(w, light)
	fmt.Fprintln(w, term.Colorize("  "+title, color.Bold))
	fmt.Fprintln(w, light)
}

func writeArchive(w io.Writer, info *analysis.ArchiveInfo) {
	if info == nil {
		return
	}

	digest := info.SHA256
	if len(digest) > digestPrefix {
		digest = digest[:digestPrefix]
	}

	//nolint:gosec // sizes are non-negative
	fmt.Fprintf(w, "  Archive size: %s (sha256 %s)\n", humanize.Bytes(uint64(info.SizeBytes)), digest)

	if info.Manifest != nil && info.Manifest.MainClass != "" {
		fmt.Fprintf(w, "  Main class: %s\n", info.Manifest.MainClass)
	}
}

func classTable(classes []analysis.ClassMetrics, term terminal.Config) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Class", "A", "B", "C", "Magnitude", "Depth", "Overridden", "Risk"})

	nameWidth := max(term.Width-classColReserve, minClassCol)

	for _, c := range classes {
		tbl.AppendRow(table.Row{
			terminal.Truncate(c.Name, nameWidth),
			c.ABC.Assignments,
			c.ABC.Branches,
			c.ABC.Conditions,
			fmt.Sprintf("%.2f", c.Magnitude),
			c.Depth,
			c.Overridden,
			term.Colorize(string(c.Risk), terminal.RiskColor(c.Risk)),
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})

	return tbl.Render()
}

// riskSummary lists the per-class risk counts, most severe level first.
func riskSummary(result analysis.Result, term terminal.Config) string {
	counts := result.RiskCounts()

	levels := slices.SortedFunc(maps.Keys(counts), func(a, b metrics.RiskLevel) int {
		return cmp.Compare(b.Rank(), a.Rank())
	})

	parts := make([]string, 0, len(levels))

	for _, level := range levels {
		parts = append(parts, fmt.Sprintf("%s %d", term.Colorize(string(level), terminal.RiskColor(level)), counts[level]))
	}

	return strings.Join(parts, ", ")
}
