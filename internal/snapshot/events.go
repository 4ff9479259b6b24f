package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// CaptureEvent reports the outcome of one fired capture.
type CaptureEvent struct {
	ID         string    `json:"id"`
	Sequence   uint64    `json:"sequence"`
	FrameIndex uint64    `json:"frame_index"`
	Location   string    `json:"location"`
	FileType   FileType  `json:"file_type"`
	Time       time.Time `json:"time"`
	Error      string    `json:"error,omitempty"`
}

func newCaptureEvent(seq, frameIndex uint64, location string, fileType FileType, err error) CaptureEvent {
	ev := CaptureEvent{
		ID:         uuid.NewString(),
		Sequence:   seq,
		FrameIndex: frameIndex,
		Location:   location,
		FileType:   fileType,
		Time:       time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Subscribe adds a listener for capture events
func (f *Filter) Subscribe() chan CaptureEvent {
	ch := make(chan CaptureEvent, 10)
	f.listenersMu.Lock()
	f.listeners = append(f.listeners, ch)
	f.listenersMu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (f *Filter) Unsubscribe(ch chan CaptureEvent) {
	f.listenersMu.Lock()
	defer f.listenersMu.Unlock()

	for i, listener := range f.listeners {
		if listener == ch {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (f *Filter) publish(ev CaptureEvent) {
	f.listenersMu.Lock()
	defer f.listenersMu.Unlock()

	for _, ch := range f.listeners {
		select {
		case ch <- ev:
		default:
			// slow listener, drop
		}
	}
}
