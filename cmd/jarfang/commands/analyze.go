package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
	"github.com/Sumatoshi-tech/jarfang/pkg/config"
	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
	"github.com/Sumatoshi-tech/jarfang/pkg/report"
	"github.com/Sumatoshi-tech/jarfang/pkg/terminal"
)

const (
	reportFilePerm = 0o644
	reportDirPerm  = 0o750
	opAnalyze      = "analyze"
)

// ErrOutputConflict is returned when both an output argument and --output
// name different files.
var ErrOutputConflict = errors.New("output given both as argument and --output")

// analyzeBindings maps config keys to analyze flags.
var analyzeBindings = map[string]string{
	"output.format":            "format",
	"output.no_color":          "no-color",
	"analysis.include_classes": "classes",
	"analysis.top_classes":     "top",
	"analysis.workers":         "workers",
	"analysis.strict":          "strict",
	"analysis.max_class_size":  "max-class-size",
}

// AnalyzeCommand holds the flags of the analyze command.
type AnalyzeCommand struct {
	root    *rootOptions
	output  string
	noCache bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	ac := &AnalyzeCommand{root: root}

	cmd := &cobra.Command{
		Use:   "analyze <input.jar> [output.json]",
		Short: "Analyze a JAR archive",
		Long: `Analyze the classes of a JAR archive and print a metrics report.

With an output path the report is written to that file as JSON, unless
--format selects another format.

Examples:
  jarfang analyze app.jar
  jarfang analyze app.jar report.json
  jarfang analyze app.jar --format yaml --classes`,
		Args: cobra.RangeArgs(1, 2),
		RunE: ac.run,
	}

	cmd.Flags().StringP("format", "f", config.DefaultOutputFormat,
		"Output format: text, compact, json, yaml, plot")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write the report to this file")
	cmd.Flags().Bool("classes", config.DefaultAnalysisIncludeClasses, "Include per-class metrics")
	cmd.Flags().Int("top", config.DefaultAnalysisTopClasses, "Classes shown in text and plot rankings")
	cmd.Flags().Int("workers", config.DefaultAnalysisWorkers, "Parallel class parsers (0 = use CPU count)")
	cmd.Flags().Bool("strict", config.DefaultAnalysisStrict, "Fail on the first unreadable class")
	cmd.Flags().String("max-class-size", config.DefaultAnalysisMaxClassSize, "Skip class entries larger than this (e.g. 16MiB)")
	cmd.Flags().Bool("no-color", config.DefaultOutputNoColor, "Disable colored output")
	cmd.Flags().BoolVar(&ac.noCache, "no-cache", false, "Bypass the parsed-class cache")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	input := args[0]

	outPath := ac.output
	if len(args) == 2 {
		if outPath != "" && outPath != args[1] {
			return fmt.Errorf("%w: %s and %s", ErrOutputConflict, args[1], outPath)
		}

		outPath = args[1]
	}

	cfg, err := ac.root.loadConfig(cmd, analyzeBindings)
	if err != nil {
		return err
	}

	if outPath != "" && !cmd.Flags().Changed("format") {
		cfg.Output.Format = report.FormatJSON
	}

	if ac.noCache {
		cfg.Cache.Enabled = false
	}

	err = jar.ValidateInput(input)
	if err != nil {
		return err
	}

	result, err := ac.analyze(cmd, cfg, input)
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), outPath, cfg, result)
}

func (ac *AnalyzeCommand) analyze(cmd *cobra.Command, cfg *config.Config, input string) (analysis.Result, error) {
	ctx := cmd.Context()

	providers, err := observability.Init(ac.root.observabilityConfig(cfg, observability.ModeCLI, cmd.ErrOrStderr()))
	if err != nil {
		return analysis.Result{}, err
	}

	defer shutdown(ctx, providers)

	logger := providers.Logger

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return analysis.Result{}, err
	}

	am, err := observability.NewAnalysisMetrics(providers.Meter)
	if err != nil {
		return analysis.Result{}, err
	}

	store, err := classStore(cfg)
	if err != nil {
		return analysis.Result{}, err
	}

	if store != nil {
		logger.DebugContext(ctx, "using class cache", "dir", store.Dir())
	}

	maxClassSize, err := cfg.MaxClassSizeBytes()
	if err != nil {
		return analysis.Result{}, err
	}

	processor := &jar.Processor{
		Workers:      cfg.Analysis.Workers,
		MaxClassSize: maxClassSize,
		Strict:       cfg.Analysis.Strict,
		Logger:       logger,
		Tracer:       providers.Tracer,
		Metrics:      am,
		Cache:        store,
	}

	logger.InfoContext(ctx, "processing JAR file", "file", filepath.Base(input))

	var archive *jar.Archive

	err = red.Observe(ctx, opAnalyze, func() error {
		var procErr error

		archive, procErr = processor.Process(ctx, input)

		return procErr
	})
	if err != nil {
		return analysis.Result{}, err
	}

	if len(archive.Classes) == 0 {
		logger.WarnContext(ctx, "no classes found in the JAR file")
	}

	logger.InfoContext(ctx, "calculating metrics", "classes", len(archive.Classes), "cached", archive.FromCache)

	opts := analysis.Options{
		IncludeClasses: cfg.Analysis.IncludeClasses || cfg.Output.Format == report.FormatPlot,
	}

	return analysis.FromArchive(archive, opts), nil
}

func writeReport(w io.Writer, outPath string, cfg *config.Config, result analysis.Result) error {
	term := terminal.NewConfig()

	opts := report.Options{
		Top:     cfg.Analysis.TopClasses,
		NoColor: cfg.Output.NoColor || term.NoColor || color.NoColor || outPath != "",
		Width:   term.Width,
	}

	if outPath == "" {
		return report.Write(w, cfg.Output.Format, result, opts)
	}

	if cfg.Output.Format == report.FormatJSON {
		abs, err := report.WriteJSONFile(outPath, result)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "JSON report written to: %s\n", abs)

		return nil
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", outPath, err)
	}

	err = os.MkdirAll(filepath.Dir(abs), reportDirPerm)
	if err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportFilePerm)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	err = report.Write(f, cfg.Output.Format, result, opts)
	if err != nil {
		f.Close()

		return err
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close report: %w", err)
	}

	fmt.Fprintf(w, "Report written to: %s\n", abs)

	return nil
}
