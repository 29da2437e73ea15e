package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/loadlab/internal/output"
)

func newPresetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the simulation presets",
		Long: `List the simulation presets the server accepts in the "preset" query
parameter of /process. Set presetsFile in the config file to replace the
built-in catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			presets := a.config.Presets.All()
			if format != output.FormatText {
				return output.Encode(cmd.OutOrStdout(), format, presets)
			}
			a.console(cmd).PrintPresets(presets)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	return cmd
}
