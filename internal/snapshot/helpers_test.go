package snapshot

import (
	"errors"
	"sync"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// recordingSink remembers everything pushed into it.
type recordingSink struct {
	mu     sync.Mutex
	caps   []frame.Caps
	frames []frame.Frame
	eos    int
	fail   bool
}

func (r *recordingSink) SetCaps(caps frame.Caps) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = append(r.caps, caps)
	return nil
}

func (r *recordingSink) PushFrame(f frame.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("sink closed")
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingSink) PushEOS() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eos++
	return nil
}

func rgbCaps(w, h int) frame.Caps {
	return frame.Caps{Width: w, Height: h, Format: "RGB", Fixed: true}
}

// gradient returns a packed RGB frame where pixel (x, y) is (x, y, 7).
func gradient(w, h int) []byte {
	data := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			data[i] = byte(x)
			data[i+1] = byte(y)
			data[i+2] = 7
		}
	}
	return data
}
