package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/api"
	"github.com/bryanchriswhite/SnapshotFilter/internal/config"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/bryanchriswhite/SnapshotFilter/internal/output"
	"github.com/bryanchriswhite/SnapshotFilter/internal/snapshot"
	"github.com/bryanchriswhite/SnapshotFilter/internal/source"
	"github.com/bryanchriswhite/SnapshotFilter/internal/source/gst"
	"github.com/bryanchriswhite/SnapshotFilter/internal/source/x11"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the snapshot pipeline and control server",
	Long: `Start the source, the snapshot filter and its outputs, and serve the HTTP
control API.

The pipeline runs until interrupted. With --exit-on-eos it also stops once
the source reaches end of stream.`,
	Example: `  # Test pattern with defaults from the config file
  snapshotfilter run

  # Capture from a webcam, two frames after each trigger, as PNG
  snapshotfilter run --source gstreamer \
    --pipeline "v4l2src ! videoconvert ! video/x-raw,format=RGB" \
    --delay 2 --file-type png --location "shot-{capture}.png"

  # Grab the X11 screen at 5 FPS on port 9090
  snapshotfilter run --source x11 --fps 5 --port 9090`,
	RunE: runRun,
}

var exitOnEOS bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("source", "", "frame source (pattern, gstreamer, launch, x11)")
	runCmd.Flags().String("pipeline", "", "gst-launch description for gstreamer/launch sources")
	runCmd.Flags().Int("fps", 0, "source frame rate")
	runCmd.Flags().Int("num-frames", 0, "stop the pattern source after this many frames")
	runCmd.Flags().Int("delay", 0, "frames between trigger and capture")
	runCmd.Flags().String("file-type", "", "snapshot file type (bmp, png, jpeg)")
	runCmd.Flags().String("location", "", "snapshot path; {frame} and {capture} are expanded")
	runCmd.Flags().Bool("no-preview", false, "disable the MJPEG preview")
	runCmd.Flags().BoolVar(&exitOnEOS, "exit-on-eos", false, "exit when the source ends")

	viper.BindPFlag("source.type", runCmd.Flags().Lookup("source"))
	viper.BindPFlag("source.pipeline", runCmd.Flags().Lookup("pipeline"))
	viper.BindPFlag("source.fps", runCmd.Flags().Lookup("fps"))
	viper.BindPFlag("source.num_frames", runCmd.Flags().Lookup("num-frames"))
	viper.BindPFlag("snapshot.frame_delay", runCmd.Flags().Lookup("delay"))
	viper.BindPFlag("snapshot.file_type", runCmd.Flags().Lookup("file-type"))
	viper.BindPFlag("snapshot.location", runCmd.Flags().Lookup("location"))
}

func runRun(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noPreview, _ := cmd.Flags().GetBool("no-preview"); noPreview {
		cfg.Preview.Enabled = false
	}

	logger.Init(cfg.LogLevel, prettyLogs)
	log := logger.WithComponent("run")
	log.Info().Str("path", configMgr.GetConfigPath()).Msg("Configuration loaded")

	// Downstream of the filter
	counter := output.NewCounter()
	outputs := []output.Output{counter}
	var preview *output.MJPEGOutput
	if cfg.Preview.Enabled {
		preview = output.NewMJPEGOutput(output.Config{
			FPS:      cfg.Preview.FPS,
			MaxWidth: cfg.Preview.MaxWidth,
			Quality:  cfg.Preview.Quality,
		})
		outputs = append(outputs, preview)
	}
	tee := output.NewTee(outputs...)

	filter, err := newFilter(cfg.Snapshot, tee)
	if err != nil {
		return err
	}
	if preview != nil {
		preview.SetStatus(func() string { return statusLine(filter.Stats()) })
	}

	if err := tee.Start(); err != nil {
		return err
	}
	defer tee.Stop()

	src, closeSource, err := newSource(cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to create %s source: %w", cfg.Source.Type, err)
	}
	defer closeSource()

	server := api.NewServer(filter, preview)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.ServerPort)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- src.Run(ctx, filter)
	}()

	log.Info().
		Str("source", src.Name()).
		Int("port", cfg.ServerPort).
		Bool("preview", preview != nil).
		Msg("SnapshotFilter is running")
	fmt.Printf("Web UI:  http://localhost:%d\n", cfg.ServerPort)
	fmt.Printf("Trigger: snapshotfilter trigger (or POST http://localhost:%d/api/trigger)\n", cfg.ServerPort)
	fmt.Println("Press Ctrl+C to stop")

	var runErr error
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case err := <-serverErr:
			if err != nil {
				runErr = fmt.Errorf("server error: %w", err)
				break wait
			}
		case err := <-sourceDone:
			sourceDone = nil
			if err != nil {
				runErr = fmt.Errorf("source %s failed: %w", src.Name(), err)
				break wait
			}
			log.Info().Msg("Source reached end of stream")
			if exitOnEOS {
				break wait
			}
		}
	}

	log.Info().Msg("Shutting down gracefully...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown error")
	}
	if !waitForSource(sourceDone, sourceDrainTimeout) {
		log.Warn().Dur("timeout", sourceDrainTimeout).Msg("Source did not stop in time")
	}

	stats := filter.Stats()
	log.Info().
		Uint64("frames_in", stats.FramesIn).
		Uint64("frames_out", stats.FramesOut).
		Uint64("captures", stats.Captures).
		Uint64("capture_errors", stats.CaptureErrors).
		Uint64("sink_frames", counter.Stats().Frames).
		Msg("Pipeline stopped")
	return runErr
}

// sourceDrainTimeout bounds how long shutdown waits for the source loop
const sourceDrainTimeout = 5 * time.Second

// waitForSource blocks until the source goroutine has returned, so nothing
// pushes into the filter or tee once they are torn down. A nil channel means
// the source already finished. Returns false on timeout.
func waitForSource(done <-chan error, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// newFilter builds the snapshot stage with its initial properties
func newFilter(cfg config.SnapshotConfig, downstream *output.Tee) (*snapshot.Filter, error) {
	writer := snapshot.NewWriter()
	if cfg.JPEGQuality > 0 {
		writer.JPEGQuality = cfg.JPEGQuality
	}
	filter := snapshot.NewFilter(downstream, writer)
	if _, err := filter.Update(snapshot.SettingsUpdate{
		FrameDelay: &cfg.FrameDelay,
		FileType:   &cfg.FileType,
		Location:   &cfg.Location,
	}); err != nil {
		return nil, err
	}
	return filter, nil
}

// statusLine is drawn on preview frames
func statusLine(stats snapshot.Stats) string {
	if stats.State == snapshot.StateArmed {
		return fmt.Sprintf("ARMED  %d frames to go  captures: %d", stats.DelayCounter+1, stats.Captures)
	}
	return fmt.Sprintf("captures: %d", stats.Captures)
}

// newSource returns the configured source and a cleanup func
func newSource(cfg config.SourceConfig) (source.Source, func(), error) {
	noop := func() {}
	switch cfg.Type {
	case config.SourcePattern:
		return source.NewPattern(cfg.Width, cfg.Height, cfg.FPS, cfg.NumFrames), noop, nil
	case config.SourceGStreamer:
		p, err := gst.NewPipeline(cfg.Pipeline)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	case config.SourceLaunch:
		return source.NewLaunch(cfg.Pipeline), noop, nil
	case config.SourceX11:
		s, err := x11.NewScreen(cfg.Width, cfg.Height, cfg.FPS)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}
