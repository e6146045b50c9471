package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/metrics"
)

// ErrUnknownMetric is returned when a metric name is not in the catalog.
var ErrUnknownMetric = errors.New("unknown metric")

func newMetricsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics [name]",
		Short: "List the metric catalog",
		Long: `List the metrics jarfang computes, or describe one metric by name.

Examples:
  jarfang metrics
  jarfang metrics class_risk --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := analysis.NewCatalog()
			catalog := registry.Catalog()

			if len(args) == 1 {
				info, ok := registry.Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s (see \"jarfang metrics\")", ErrUnknownMetric, args[0])
				}

				catalog = []metrics.Info{info}
			}

			out := cmd.OutOrStdout()

			if asJSON {
				return writeCatalogJSON(out, catalog)
			}

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Name", "Metric", "Type", "Description"})

			for _, info := range catalog {
				tbl.AppendRow(table.Row{info.Name, info.DisplayName, info.Type, info.Description})
			}

			fmt.Fprintln(out, tbl.Render())

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")

	return cmd
}

func writeCatalogJSON(w io.Writer, catalog []metrics.Info) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	return nil
}
