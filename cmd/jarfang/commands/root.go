// Package commands implements CLI command handlers for jarfang.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/cache"
	"github.com/Sumatoshi-tech/jarfang/pkg/config"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
	"github.com/Sumatoshi-tech/jarfang/pkg/version"
)

// rootOptions holds the persistent flags shared by all subcommands.
type rootOptions struct {
	verbose    bool
	quiet      bool
	configPath string
}

// NewRootCommand builds the jarfang command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jarfang",
		Short: "JAR bytecode metrics analyzer",
		Long: `jarfang reads the compiled classes of a JAR archive and reports
object-oriented metrics: inheritance depth, ABC complexity, overridden
methods and fields per class.

Commands:
  analyze   Analyze a JAR archive
  compare   Compare two JSON reports
  validate  Validate a JSON report against the report schema
  metrics   List the metric catalog
  mcp       Start the MCP server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: .jarfang.yaml in . or $HOME)")

	cmd.AddCommand(
		newAnalyzeCommand(opts),
		newCompareCommand(),
		newValidateCommand(),
		newMetricsCommand(),
		newMCPCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

func (o *rootOptions) loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	return config.LoadConfig(o.configPath, config.WithFlags(cmd.Flags(), bindings))
}

// observabilityConfig applies --verbose and --quiet on top of the configured
// log level.
func (o *rootOptions) observabilityConfig(
	cfg *config.Config, mode observability.AppMode, logOutput io.Writer,
) observability.Config {
	obs := cfg.Observability(mode, version.Version)
	obs.LogOutput = logOutput

	switch {
	case o.quiet:
		obs.LogLevel = slog.LevelError
	case o.verbose:
		obs.LogLevel = slog.LevelDebug
	}

	return obs
}

func shutdown(ctx context.Context, providers observability.Providers) {
	err := providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		providers.Logger.WarnContext(ctx, "observability shutdown failed", "error", err)
	}
}

// classStore opens the parsed-class cache when enabled.
func classStore(cfg *config.Config) (*cache.ClassStore, error) {
	if !cfg.Cache.Enabled {
		return nil, nil //nolint:nilnil // disabled cache
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		var err error

		dir, err = cache.DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	return cache.NewClassStore(dir), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
