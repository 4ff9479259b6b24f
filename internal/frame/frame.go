package frame

import (
	"fmt"
	"time"
)

// Frame is one raw video frame as delivered by a source.
// Data is only valid for the duration of the PushFrame call that carries it;
// consumers that need the pixels afterwards must copy them.
type Frame struct {
	Data  []byte
	Index uint64
	PTS   time.Duration
}

// Caps describes the negotiated raw video format of a stream.
// A zero Width/Height or an empty Format means the field was absent.
type Caps struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	// Fixed is false while negotiation still allows more than one concrete format
	Fixed bool `json:"fixed"`
}

func (c Caps) String() string {
	return fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d (fixed=%v)", c.Format, c.Width, c.Height, c.Fixed)
}

// Sink is anything that accepts a stream of caps, frames and end-of-stream.
// Sources push into a Sink; the snapshot filter is itself a Sink that
// forwards to the next one.
type Sink interface {
	// SetCaps announces a new stream format. Frames that follow use it.
	SetCaps(caps Caps) error

	// PushFrame hands over one frame. The sink must not retain f.Data.
	PushFrame(f Frame) error

	// PushEOS signals that no more frames will follow.
	PushEOS() error
}
