package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bryanchriswhite/SnapshotFilter/internal/api"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running instance",
	Long:  `Show frame counters, the negotiated format and the capture settings of a running 'snapshotfilter run'.`,
	Example: `  # Table output (default)
  snapshotfilter status

  # JSON output from another host
  snapshotfilter status --server http://camera-box:8080 --format json`,
	RunE: runStatus,
}

var (
	statusServer string
	statusFormat string
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusServer, "server", "", "control API URL (default is http://localhost:<server_port>)")
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "table", "output format (table or json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL(statusServer))

	var status api.StatusResponse
	if err := client.do("GET", "/api/stats", nil, &status); err != nil {
		return err
	}

	switch statusFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	case "table":
		fmt.Println(renderStatus(status))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", statusFormat)
	}
}

func renderStatus(status api.StatusResponse) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("SnapshotFilter")
	t.AppendHeader(table.Row{"Property", "Value"})

	t.AppendRow(table.Row{"State", status.Filter.State})
	t.AppendRow(table.Row{"Delay counter", status.Filter.DelayCounter})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Frame delay", status.Settings.FrameDelay})
	t.AppendRow(table.Row{"File type", status.Settings.FileType})
	t.AppendRow(table.Row{"Location", status.Settings.Location})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Format", fmt.Sprintf("%dx%d %s (stride %d)",
		status.Format.Width, status.Format.Height, status.Format.Layout, status.Format.Stride)})
	t.AppendRow(table.Row{"Frames in", status.Filter.FramesIn})
	t.AppendRow(table.Row{"Frames out", status.Filter.FramesOut})
	t.AppendRow(table.Row{"Captures", status.Filter.Captures})
	t.AppendRow(table.Row{"Capture errors", status.Filter.CaptureErrors})

	if p := status.Preview; p != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Preview frames", p.Frames})
		t.AppendRow(table.Row{"Preview clients", p.Clients})
	}

	return t.Render()
}
