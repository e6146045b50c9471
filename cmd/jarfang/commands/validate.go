package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/report/schema"
)

// ErrReportInvalid is returned when a report fails schema validation.
var ErrReportInvalid = errors.New("report does not match the schema")

const stdinArg = "-"

func newValidateCommand() *cobra.Command {
	var noColor, printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a JSON report produced by "jarfang analyze" against the
embedded report schema. With --schema the schema itself is printed.

Examples:
  jarfang validate report.json
  jarfang validate - < report.json
  jarfang validate --schema > report-schema.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(schema.Schema())
				if err != nil {
					return fmt.Errorf("write schema: %w", err)
				}

				return nil
			}

			data, label, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			res, err := schema.Validate(data)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}

			return printValidation(cmd.OutOrStdout(), label, res, noColor || color.NoColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the report schema and exit")

	return cmd
}

func readInput(stdin io.Reader, arg string) ([]byte, string, error) {
	if arg == stdinArg {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return data, arg, nil
}

func printValidation(w io.Writer, label string, res *schema.Result, noColor bool) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, c := range []*color.Color{green, red} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}

	if res.Valid {
		green.Fprintf(w, "Report is valid (%s)\n", label)

		return nil
	}

	red.Fprintf(w, "Report validation failed (%s)\n", label)
	fmt.Fprintf(w, "\nErrors:\n")

	for _, verr := range res.Errors {
		red.Fprintf(w, "  - %s: %s\n", verr.Field, verr.Description)
	}

	return fmt.Errorf("%w: %d error(s)", ErrReportInvalid, len(res.Errors))
}
