package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wesleyorama2/loadlab/internal/loadgen"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/output"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

func newHammerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hammer",
		Short: "Drive load against a loadlab server",
		Long: `Fire /process requests from a number of virtual users and summarize the
latencies observed by the client.

Without --rate every virtual user sends its next request as soon as the
previous one completes. With --rate requests start at a fixed pace and
--vus caps how many are in flight.`,
		Example: `  loadlab hammer --url http://localhost:3001 --preset "DB Latency" --vus 10 --duration 30s
  loadlab hammer --delay 50 --jitter 20 --rate 100 --vus 20 --duration 1m -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := hammerConfig(cmd.Flags(), a.config.Metrics.EngineConfig().SketchConfig())
			if err != nil {
				return err
			}

			h, err := loadgen.New(cfg, nil)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithShutdown(cmd.Context())
			defer cancel()

			summary, err := h.Run(ctx)
			if err != nil {
				return err
			}

			if format != output.FormatText {
				return output.Encode(cmd.OutOrStdout(), format, summary)
			}
			a.console(cmd).PrintSummary(summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("url", "u", "http://localhost:3001", "server base URL or full /process URL")
	flags.StringP("preset", "p", "", "server preset name; explicit parameters override it")
	flags.Int("delay", 0, "delay in ms (negative simulates a failure)")
	flags.Int64("cpu-load", 0, "CPU burn iterations per request")
	flags.Int("memory-stress", 0, "MiB allocated per request")
	flags.Int("jitter", 0, "maximum delay jitter in ms")
	flags.Int("vus", 1, "number of virtual users")
	flags.Float64("rate", 0, "requests per second (0 = closed loop)")
	flags.DurationP("duration", "d", 10*time.Second, "length of the run")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.StringP("output", "o", "text", "output format: text, json or yaml")

	return cmd
}

// hammerConfig reads the load run flags.
func hammerConfig(flags *pflag.FlagSet, sketch metrics.SketchConfig) (loadgen.Config, error) {
	var cfg loadgen.Config
	var err error
	if cfg.URL, err = flags.GetString("url"); err != nil {
		return cfg, err
	}
	if cfg.Preset, err = flags.GetString("preset"); err != nil {
		return cfg, err
	}

	var params simulation.Params
	if params.Delay, err = flags.GetInt("delay"); err != nil {
		return cfg, err
	}
	if params.CPULoad, err = flags.GetInt64("cpu-load"); err != nil {
		return cfg, err
	}
	if params.MemoryStress, err = flags.GetInt("memory-stress"); err != nil {
		return cfg, err
	}
	if params.Jitter, err = flags.GetInt("jitter"); err != nil {
		return cfg, err
	}
	cfg.Params = params

	if cfg.VUs, err = flags.GetInt("vus"); err != nil {
		return cfg, err
	}
	if cfg.Rate, err = flags.GetFloat64("rate"); err != nil {
		return cfg, err
	}
	if cfg.Duration, err = flags.GetDuration("duration"); err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return cfg, err
	}

	cfg.Sketch = sketch
	return cfg, nil
}
