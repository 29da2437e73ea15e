package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/loadlab/internal/logging"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/server"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workload and metrics server",
		Long: `Serve the synthetic /process endpoint and the metrics it produces.

Every /process request is timed and recorded. Metrics are available at
GET /metrics (DELETE resets them), pushed over the /metrics/ws websocket
after every closed interval, and exposed for Prometheus at /prometheus.

The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  loadlab serve --addr :3001 --flush-interval 2s
  LOADLAB_METRICS_HISTORYCAPACITY=60 loadlab serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config
			if err := logging.ConfigureTo(cfg.Logging, cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx, cancel := contextWithShutdown(cmd.Context())
			defer cancel()

			engine := metrics.NewEngineWithConfig(cfg.Metrics.EngineConfig())
			srv := server.New(cfg, engine, simulation.New(cfg.Simulation.Limits()))
			return srv.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":3001", "listen address")
	flags.Duration("flush-interval", metrics.DefaultEngineConfig().FlushInterval, "metrics window length")
	flags.Int("history", metrics.DefaultEngineConfig().HistoryCapacity, "number of closed windows kept")
	flags.String("allowed-origin", "*", "CORS and websocket allowed origin")
	flags.String("presets-file", "", "YAML or JSON presets file (default: built-in presets)")

	_ = a.v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("metrics.flushInterval", flags.Lookup("flush-interval"))
	_ = a.v.BindPFlag("metrics.historyCapacity", flags.Lookup("history"))
	_ = a.v.BindPFlag("server.allowedOrigin", flags.Lookup("allowed-origin"))
	_ = a.v.BindPFlag("presetsFile", flags.Lookup("presets-file"))

	return cmd
}
