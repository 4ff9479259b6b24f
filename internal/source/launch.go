package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
)

// Launch runs gst-launch-1.0 as a subprocess and reads raw frames from its
// stdout. Frames are fixed-size, so the description must end in fully
// specified caps, e.g.
//
//	videotestsrc ! videoconvert ! video/x-raw,format=RGB,width=640,height=480
type Launch struct {
	Description string

	// command builds the subprocess; tests replace it
	command func(ctx context.Context, pipeline string) *exec.Cmd
}

// NewLaunch creates a gst-launch subprocess source
func NewLaunch(description string) *Launch {
	return &Launch{Description: strings.TrimSpace(description)}
}

// Name returns the source name
func (l *Launch) Name() string {
	return "gst-launch"
}

// bytesPerPixel covers the packed raw formats a subprocess can stream.
var bytesPerPixel = map[string]int{
	"RGB": 3, "BGR": 3,
	"RGBx": 4, "BGRx": 4, "xRGB": 4, "xBGR": 4,
	"RGBA": 4, "BGRA": 4, "ARGB": 4, "ABGR": 4,
	"GRAY8": 1, "GRAY16_LE": 2, "GRAY16_BE": 2,
}

// TrailingCaps parses the last element of a launch description as caps.
func TrailingCaps(description string) frame.Caps {
	parts := strings.Split(description, "!")
	return ParseCaps(strings.TrimSpace(parts[len(parts)-1]))
}

// Geometry is the byte layout of one raw frame on a gst-launch stdout.
// GStreamer rounds every row up to a multiple of 4 bytes.
type Geometry struct {
	RowBytes int // packed bytes per row, width*bpp
	Stride   int // bytes per row on the wire
	Height   int
}

// FrameSize is the number of bytes one frame occupies on the wire
func (g Geometry) FrameSize() int {
	return g.Stride * g.Height
}

// Padded reports whether rows carry trailing padding
func (g Geometry) Padded() bool {
	return g.Stride != g.RowBytes
}

// FrameGeometry returns the wire layout of frames in caps, or an error when
// the caps do not pin down a packed format.
func FrameGeometry(caps frame.Caps) (Geometry, error) {
	if !caps.Fixed || caps.Width <= 0 || caps.Height <= 0 {
		return Geometry{}, fmt.Errorf("caps must be fixed with width and height: %s", caps)
	}
	bpp, ok := bytesPerPixel[caps.Format]
	if !ok {
		return Geometry{}, fmt.Errorf("unsupported raw format for subprocess capture: %q", caps.Format)
	}
	row := caps.Width * bpp
	return Geometry{RowBytes: row, Stride: (row + 3) &^ 3, Height: caps.Height}, nil
}

// FrameSize returns the wire size of one frame in caps
func FrameSize(caps frame.Caps) (int, error) {
	g, err := FrameGeometry(caps)
	if err != nil {
		return 0, err
	}
	return g.FrameSize(), nil
}

// Run starts gst-launch-1.0 and pushes every complete frame it writes.
func (l *Launch) Run(ctx context.Context, sink frame.Sink) error {
	log := logger.WithComponent("gst-launch")

	caps := TrailingCaps(l.Description)
	geom, err := FrameGeometry(caps)
	if err != nil {
		return err
	}

	pipelineStr := l.Description + " ! fdsink fd=1 sync=false"
	command := l.command
	if command == nil {
		command = defaultCommand
	}
	cmd := command(ctx, pipelineStr)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := sink.SetCaps(caps); err != nil {
		return fmt.Errorf("failed to set caps: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start gst-launch: %w", err)
	}
	log.Info().Int("pid", cmd.Process.Pid).Str("pipeline", pipelineStr).Msg("GStreamer subprocess started")

	go logStderr(stderr)

	readErr := readFrames(ctx, bufio.NewReaderSize(stdout, geom.FrameSize()*2), geom, sink)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		log.Info().Msg("GStreamer subprocess stopped")
		return nil
	}
	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		return fmt.Errorf("gst-launch exited: %w", waitErr)
	}
	return sink.PushEOS()
}

func defaultCommand(ctx context.Context, pipeline string) *exec.Cmd {
	// sh splits the description into arguments; exec so cancelling ctx
	// kills gst-launch itself
	return exec.CommandContext(ctx, "sh", "-c", "exec gst-launch-1.0 -q "+pipeline)
}

// readFrames reads one wire frame at a time until EOF and pushes it with
// row padding removed, so downstream always sees width*bpp rows. A trailing
// partial frame is dropped.
func readFrames(ctx context.Context, r io.Reader, geom Geometry, sink frame.Sink) error {
	buf := make([]byte, geom.FrameSize())
	out := buf
	if geom.Padded() {
		out = make([]byte, geom.RowBytes*geom.Height)
	}
	start := time.Now()
	var index uint64
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read frame: %w", err)
		}
		if geom.Padded() {
			for y := 0; y < geom.Height; y++ {
				copy(out[y*geom.RowBytes:(y+1)*geom.RowBytes], buf[y*geom.Stride:])
			}
		}
		if err := sink.PushFrame(frame.Frame{Data: out, Index: index, PTS: time.Since(start)}); err != nil {
			return err
		}
		index++
	}
}

func logStderr(stderr io.Reader) {
	log := logger.WithComponent("gst-launch")
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "ERROR") || strings.Contains(line, "WARN") {
			log.Warn().Str("gst", line).Msg("GStreamer message")
		} else {
			log.Debug().Str("gst", line).Msg("GStreamer output")
		}
	}
}
