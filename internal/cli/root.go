// Package cli implements the loadlab command line.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/logging"
	"github.com/wesleyorama2/loadlab/internal/output"
)

var version = "0.1.0"

// app carries state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool

	config *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:     "loadlab",
		Short:   "A latency and error-rate lab for HTTP services",
		Version: version,
		Long: `loadlab serves a synthetic workload endpoint, measures every request it
handles, and publishes cumulative and windowed latency metrics over HTTP,
websocket and Prometheus. It also ships the clients to drive load against
it, follow its metrics stream and render reports.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./loadlab.yaml or $HOME/.loadlab/loadlab.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newServeCommand(a),
		newHammerCommand(a),
		newWatchCommand(a),
		newReportCommand(a),
		newPresetsCommand(a),
	)
	return rootCmd
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.config = cfg

	// Client commands keep stdout for their own output.
	return logging.ConfigureTo(cfg.Logging, cmd.ErrOrStderr())
}

func (a *app) console(cmd *cobra.Command) *output.Console {
	w := cmd.OutOrStdout()
	return output.NewConsole(w, !a.noColor && output.UseColors(w))
}

func outputFormat(cmd *cobra.Command) (output.OutputFormat, error) {
	name, _ := cmd.Flags().GetString("output")
	return output.ParseFormat(name)
}
