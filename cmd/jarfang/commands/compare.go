package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/compare"
)

const compareDigits = 2

func newCompareCommand() *cobra.Command {
	var unified, asJSON, noColor bool

	cmd := &cobra.Command{
		Use:   "compare <base.json> <head.json>",
		Short: "Compare two JSON reports",
		Long: `Compare the core metrics of two JSON reports produced by "jarfang analyze".

Examples:
  jarfang compare v1.json v2.json
  jarfang compare v1.json v2.json --unified`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read base report: %w", err)
			}

			head, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read head report: %w", err)
			}

			deltas, err := compare.Compare(base, head)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if asJSON {
				return writeDeltasJSON(out, deltas)
			}

			fmt.Fprintln(out, deltaTable(deltas, noColor || color.NoColor))

			if unified {
				fmt.Fprintln(out)
				fmt.Fprint(out, compare.UnifiedText(string(base), string(head)))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&unified, "unified", false, "Also print a line diff of the two reports")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the deltas as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func deltaTable(deltas []compare.Delta, noColor bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Metric", "Base", "Head", "Change"})

	changed := color.New(color.FgYellow)
	if noColor {
		changed.DisableColor()
	} else {
		changed.EnableColor()
	}

	for _, d := range deltas {
		change := formatChange(d.Change)
		if d.Changed() {
			change = changed.Sprint(change)
		}

		tbl.AppendRow(table.Row{
			d.Metric,
			formatValue(d.Base),
			formatValue(d.Head),
			change,
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	return tbl.Render()
}

// formatValue prints whole numbers as integers and rounds the rest to two
// decimals, matching the text report.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	return strconv.FormatFloat(v, 'f', compareDigits, 64)
}

func formatChange(v float64) string {
	s := formatValue(v)
	if v > 0 {
		return "+" + s
	}

	return s
}

func writeDeltasJSON(w io.Writer, deltas []compare.Delta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(deltas)
	if err != nil {
		return fmt.Errorf("encode deltas: %w", err)
	}

	return nil
}
