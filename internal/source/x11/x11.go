// Package x11 grabs the X11 root window (or a region of it) at a fixed rate
// and feeds it to a frame.Sink as packed RGB.
package x11

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
)

// Screen captures a region of the root window
type Screen struct {
	conn   *xgb.Conn
	root   xproto.Window
	width  int
	height int
	fps    int
}

// NewScreen connects to the X server. A zero width or height means the full
// screen; larger values are clamped to the screen size.
func NewScreen(width, height, fps int) (*Screen, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", fps)
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	if screen.RootDepth != 24 && screen.RootDepth != 32 {
		conn.Close()
		return nil, fmt.Errorf("unsupported root depth %d", screen.RootDepth)
	}

	return &Screen{
		conn:   conn,
		root:   screen.Root,
		width:  clamp(width, int(screen.WidthInPixels)),
		height: clamp(height, int(screen.HeightInPixels)),
		fps:    fps,
	}, nil
}

func clamp(v, max int) int {
	if v <= 0 || v > max {
		return max
	}
	return v
}

// Name returns the source name
func (s *Screen) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (s *Screen) Close() {
	s.conn.Close()
}

// Run grabs frames until ctx is cancelled. The X server never ends the
// stream, so no EOS is pushed.
func (s *Screen) Run(ctx context.Context, sink frame.Sink) error {
	log := logger.WithComponent("x11-source")

	if err := sink.SetCaps(frame.Caps{Width: s.width, Height: s.height, Format: "RGB", Fixed: true}); err != nil {
		return fmt.Errorf("failed to set caps: %w", err)
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	buf := make([]byte, s.width*s.height*frame.BytesPerPixelRGB)
	start := time.Now()
	var index uint64

	log.Info().
		Int("width", s.width).
		Int("height", s.height).
		Int("fps", s.fps).
		Msg("X11 capture started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", index).Msg("X11 capture stopped")
			return nil
		case <-ticker.C:
		}

		reply, err := xproto.GetImage(
			s.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(s.root),
			0, 0,
			uint16(s.width), uint16(s.height),
			0xffffffff,
		).Reply()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to grab root window")
			continue
		}

		ConvertBGRx(buf, reply.Data, s.width, s.height)
		if err := sink.PushFrame(frame.Frame{Data: buf, Index: index, PTS: time.Since(start)}); err != nil {
			return err
		}
		index++
	}
}

// ConvertBGRx packs 32-bit ZPixmap data (B, G, R, pad) into RGB triplets.
// Pixels missing from a short src are left untouched in dst.
func ConvertBGRx(dst, src []byte, width, height int) {
	n := width * height
	for p := 0; p < n; p++ {
		i := p * 4
		if i+3 >= len(src) {
			return
		}
		o := p * frame.BytesPerPixelRGB
		dst[o] = src[i+2]
		dst[o+1] = src[i+1]
		dst[o+2] = src[i]
	}
}
