package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/snapshot"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT",
	Short: "Write a raw RGB frame as an image file",
	Long: `Encode a file of packed 8-bit RGB pixels (as dumped by a filesink or
'gst-launch-1.0 ... ! video/x-raw,format=RGB ! filesink') with the same
writer the snapshot filter uses.`,
	Example: `  # frame.rgb is 640x480 RGB, write frame.bmp
  snapshotfilter convert frame.rgb --width 640 --height 480

  # Write a PNG to a chosen path
  snapshotfilter convert frame.rgb --width 640 --height 480 --type png --output out.png`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var (
	convertWidth   int
	convertHeight  int
	convertType    string
	convertOutput  string
	convertQuality int
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().IntVar(&convertWidth, "width", 0, "frame width in pixels")
	convertCmd.Flags().IntVar(&convertHeight, "height", 0, "frame height in pixels")
	convertCmd.Flags().StringVarP(&convertType, "type", "t", "bmp", "output file type (bmp, png, jpeg)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output path (default is INPUT with the type's extension)")
	convertCmd.Flags().IntVar(&convertQuality, "quality", snapshot.DefaultJPEGQuality, "JPEG quality (1-100)")
	convertCmd.MarkFlagRequired("width")
	convertCmd.MarkFlagRequired("height")
}

func runConvert(cmd *cobra.Command, args []string) error {
	fileType, err := snapshot.ParseFileType(convertType)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var tracker snapshot.Tracker
	format, err := tracker.OnFormatChanged(frame.Caps{
		Width:  convertWidth,
		Height: convertHeight,
		Format: "RGB",
		Fixed:  true,
	})
	if err != nil {
		return err
	}
	if len(data) != format.FrameSize() {
		return fmt.Errorf("input is %d bytes, %dx%d RGB needs %d", len(data), format.Width, format.Height, format.FrameSize())
	}

	output := convertOutput
	if output == "" {
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + string(fileType)
	}

	writer := snapshot.NewWriter()
	writer.JPEGQuality = convertQuality
	if err := writer.Write(data, format, fileType, output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d %s)\n", output, format.Width, format.Height, fileType)
	return nil
}
