package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jarfang/pkg/jar"
	"github.com/Sumatoshi-tech/jarfang/pkg/mcp"
	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
)

func newMCPCommand(root *rootOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes jarfang analysis as tools that AI agents can discover
and invoke:
  - jarfang_analyze: Analyze a JAR archive by absolute path
  - jarfang_compare: Compare two JSON reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			obsCfg := root.observabilityConfig(cfg, observability.ModeMCP, cmd.ErrOrStderr())
			obsCfg.LogJSON = true

			if debug {
				obsCfg.LogLevel = slog.LevelDebug
			}

			providers, err := observability.Init(obsCfg)
			if err != nil {
				return err
			}

			defer shutdown(cmd.Context(), providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			am, err := observability.NewAnalysisMetrics(providers.Meter)
			if err != nil {
				return err
			}

			store, err := classStore(cfg)
			if err != nil {
				return err
			}

			maxClassSize, err := cfg.MaxClassSizeBytes()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
				Processor: &jar.Processor{
					Workers:      cfg.Analysis.Workers,
					MaxClassSize: maxClassSize,
					Strict:       cfg.Analysis.Strict,
					Logger:       providers.Logger,
					Tracer:       providers.Tracer,
					Metrics:      am,
					Cache:        store,
				},
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
