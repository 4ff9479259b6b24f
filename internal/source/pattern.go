package source

import (
	"context"
	"fmt"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
)

var barColors = [][3]byte{
	{255, 255, 255}, {255, 255, 0}, {0, 255, 255}, {0, 255, 0},
	{255, 0, 255}, {255, 0, 0}, {0, 0, 255}, {0, 0, 0},
}

// Pattern generates scrolling colour bars in packed RGB, like videotestsrc.
type Pattern struct {
	Width     int
	Height    int
	FPS       int
	NumFrames int // 0 = until ctx is cancelled
	// Format is announced in the caps; defaults to "RGB"
	Format string
}

// NewPattern creates a pattern source
func NewPattern(width, height, fps, numFrames int) *Pattern {
	return &Pattern{Width: width, Height: height, FPS: fps, NumFrames: numFrames, Format: "RGB"}
}

// Name returns the source name
func (p *Pattern) Name() string {
	return "pattern"
}

// Run pushes frames at FPS. A non-positive FPS pushes as fast as the sink
// accepts them.
func (p *Pattern) Run(ctx context.Context, sink frame.Sink) error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid pattern size %dx%d", p.Width, p.Height)
	}
	format := p.Format
	if format == "" {
		format = "RGB"
	}
	log := logger.WithComponent("pattern-source")

	if err := sink.SetCaps(frame.Caps{Width: p.Width, Height: p.Height, Format: format, Fixed: true}); err != nil {
		return fmt.Errorf("failed to set caps: %w", err)
	}

	var tick <-chan time.Time
	var interval time.Duration
	if p.FPS > 0 {
		interval = time.Second / time.Duration(p.FPS)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// the same buffer is refilled for every frame, sinks must not keep it
	buf := make([]byte, p.Width*p.Height*frame.BytesPerPixelRGB)
	log.Info().Int("width", p.Width).Int("height", p.Height).Int("fps", p.FPS).Msg("Pattern source started")

	for i := 0; p.NumFrames <= 0 || i < p.NumFrames; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		p.fill(buf, i)
		f := frame.Frame{Data: buf, Index: uint64(i), PTS: time.Duration(i) * interval}
		if err := sink.PushFrame(f); err != nil {
			return err
		}
	}

	log.Info().Int("frames", p.NumFrames).Msg("Pattern source finished")
	return sink.PushEOS()
}

func (p *Pattern) fill(buf []byte, n int) {
	barWidth := p.Width / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	stride := p.Width * frame.BytesPerPixelRGB
	for x := 0; x < p.Width; x++ {
		c := barColors[((x+n)/barWidth)%len(barColors)]
		i := x * frame.BytesPerPixelRGB
		buf[i], buf[i+1], buf[i+2] = c[0], c[1], c[2]
	}
	for y := 1; y < p.Height; y++ {
		copy(buf[y*stride:(y+1)*stride], buf[:stride])
	}
}
