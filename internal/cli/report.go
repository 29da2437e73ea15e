package cli

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/report"
)

func newReportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an HTML report of a metrics snapshot",
		Long: `Render the cumulative metrics and interval history of a snapshot as a
standalone HTML page. The snapshot is fetched from a running server with
--url or read from a file saved from GET /metrics with --in.`,
		Example: `  loadlab report --url http://localhost:3001/metrics --out report.html
  curl -s localhost:3001/metrics > snapshot.json && loadlab report --in snapshot.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")

			var (
				snapshot metrics.Snapshot
				source   string
				err      error
			)
			switch {
			case in != "":
				source = in
				snapshot, err = readSnapshotFile(in)
			case url != "":
				source = url
				snapshot, err = report.FetchSnapshot(cmd.Context(), nil, url)
			default:
				return errors.New("one of --url or --in is required")
			}
			if err != nil {
				return err
			}

			if err := report.GenerateHTML(snapshot, report.Options{Title: title, Source: source}, out); err != nil {
				return err
			}
			a.console(cmd).Successf("Report written to %s", out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("url", "", "GET /metrics URL of a running server")
	flags.String("in", "", "snapshot JSON file")
	flags.String("out", "loadlab-report.html", "output HTML file")
	flags.String("title", report.DefaultTitle, "report title")
	cmd.MarkFlagsMutuallyExclusive("url", "in")

	return cmd
}

func readSnapshotFile(path string) (metrics.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return metrics.Snapshot{}, errors.Wrap(err, "failed to open snapshot")
	}
	defer f.Close()
	return report.ReadSnapshot(f)
}
