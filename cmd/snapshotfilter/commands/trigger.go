package commands

import (
	"fmt"

	"github.com/bryanchriswhite/SnapshotFilter/internal/api"
	"github.com/bryanchriswhite/SnapshotFilter/internal/snapshot"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Arm a capture on a running instance",
	Long: `Arm the snapshot trigger of a running 'snapshotfilter run'.

The capture happens after the configured frame delay. --delay, --file-type
and --location update those properties before arming; they stay in effect
for later captures.`,
	Example: `  # Capture the next frame
  snapshotfilter trigger

  # Capture five frames from now, as JPEG
  snapshotfilter trigger --delay 5 --file-type jpeg

  # Cancel a pending capture
  snapshotfilter trigger --cancel`,
	RunE: runTrigger,
}

var (
	triggerServer   string
	triggerDelay    int
	triggerFileType string
	triggerLocation string
	triggerCancel   bool
)

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().StringVar(&triggerServer, "server", "", "control API URL (default is http://localhost:<server_port>)")
	triggerCmd.Flags().IntVar(&triggerDelay, "delay", 0, "set the frame delay before arming")
	triggerCmd.Flags().StringVar(&triggerFileType, "file-type", "", "set the snapshot file type before arming")
	triggerCmd.Flags().StringVar(&triggerLocation, "location", "", "set the snapshot location before arming")
	triggerCmd.Flags().BoolVar(&triggerCancel, "cancel", false, "disarm instead of arming")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL(triggerServer))

	var update api.SettingsUpdate
	if cmd.Flags().Changed("delay") {
		update.FrameDelay = &triggerDelay
	}
	if cmd.Flags().Changed("file-type") {
		update.FileType = &triggerFileType
	}
	if cmd.Flags().Changed("location") {
		update.Location = &triggerLocation
	}
	if update.FrameDelay != nil || update.FileType != nil || update.Location != nil {
		var settings snapshot.Settings
		if err := client.do("PUT", "/api/snapshot", update, &settings); err != nil {
			return err
		}
		fmt.Printf("Settings: delay=%d type=%s location=%s\n", settings.FrameDelay, settings.FileType, settings.Location)
	}

	armed := !triggerCancel
	var resp struct {
		State snapshot.State `json:"state"`
	}
	if err := client.do("POST", "/api/trigger", api.TriggerRequest{Trigger: &armed}, &resp); err != nil {
		return err
	}

	fmt.Printf("Trigger state: %s\n", resp.State)
	return nil
}
