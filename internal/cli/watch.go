package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/output"
	"github.com/wesleyorama2/loadlab/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the metrics stream of a loadlab server",
		Long: `Connect to the /metrics/ws websocket and print every pushed snapshot:
once on connect, then once per closed interval.`,
		Example: `  loadlab watch --url ws://localhost:3001/metrics/ws
  loadlab watch --url http://localhost:3001 --count 5 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			count, _ := cmd.Flags().GetInt("count")

			client, err := watch.NewClient(url)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithShutdown(cmd.Context())
			defer cancel()

			console := a.console(cmd)
			received := 0
			return client.Watch(ctx, func(s metrics.Snapshot) error {
				if format == output.FormatText {
					console.PrintSnapshot(s)
				} else if err := output.Encode(cmd.OutOrStdout(), format, s); err != nil {
					return err
				}

				received++
				if count > 0 && received >= count {
					return watch.ErrStop
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringP("url", "u", "ws://localhost:3001"+watch.StreamPath, "server URL or websocket URL")
	flags.IntP("count", "n", 0, "stop after this many snapshots (0 = until interrupted)")
	flags.StringP("output", "o", "text", "output format: text, json or yaml")

	return cmd
}
