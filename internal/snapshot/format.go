package snapshot

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// PixelLayout is the byte arrangement of a tracked stream.
type PixelLayout int

const (
	LayoutUnset PixelLayout = iota
	LayoutRGB
	LayoutUnsupported
)

func (l PixelLayout) String() string {
	switch l {
	case LayoutRGB:
		return "RGB"
	case LayoutUnsupported:
		return "unsupported"
	default:
		return "unset"
	}
}

func (l PixelLayout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *PixelLayout) UnmarshalText(text []byte) error {
	switch string(text) {
	case "RGB":
		*l = LayoutRGB
	case "unsupported":
		*l = LayoutUnsupported
	case "unset", "":
		*l = LayoutUnset
	default:
		return fmt.Errorf("unknown pixel layout %q", text)
	}
	return nil
}

// StreamFormat is the geometry of the frames currently flowing through the filter.
type StreamFormat struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Stride int         `json:"stride"`
	Layout PixelLayout `json:"layout"`
}

// CanCapture reports whether frames in this format can be written out.
func (f StreamFormat) CanCapture() bool {
	return f.Layout == LayoutRGB
}

// FrameSize is the minimum number of bytes a frame in this format occupies.
func (f StreamFormat) FrameSize() int {
	return f.Height * f.Stride
}

// Tracker keeps the last accepted stream format.
type Tracker struct {
	mu     sync.RWMutex
	format StreamFormat
}

// OnFormatChanged validates caps and replaces the tracked format.
//
// Unfixed caps are rejected without touching the current format, since
// negotiation has not settled yet. Caps with missing fields reset the
// format to unset so no capture can use stale geometry.
//
// The stride is always width*3. BGR and RGB are not told apart here, only
// the format name decides whether capture is allowed.
func (t *Tracker) OnFormatChanged(caps frame.Caps) (StreamFormat, error) {
	if !caps.Fixed {
		return StreamFormat{}, &FormatError{Kind: LayoutNotFixed, Caps: caps.String()}
	}
	if caps.Width <= 0 || caps.Height <= 0 {
		t.reset()
		return StreamFormat{}, &FormatError{Kind: MissingDimensions, Caps: caps.String()}
	}
	if caps.Format == "" {
		t.reset()
		return StreamFormat{}, &FormatError{Kind: MissingLayout, Caps: caps.String()}
	}

	f := StreamFormat{
		Width:  caps.Width,
		Height: caps.Height,
		Stride: caps.Width * frame.BytesPerPixelRGB,
		Layout: LayoutUnsupported,
	}
	if caps.Format == "RGB" {
		f.Layout = LayoutRGB
	}

	t.mu.Lock()
	t.format = f
	t.mu.Unlock()
	return f, nil
}

// Format returns the currently tracked format.
func (t *Tracker) Format() StreamFormat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.format
}

func (t *Tracker) reset() {
	t.mu.Lock()
	t.format = StreamFormat{}
	t.mu.Unlock()
}
