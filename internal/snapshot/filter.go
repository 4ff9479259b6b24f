// Package snapshot implements a passthrough video stage that writes one
// selected frame to an image file each time it is triggered.
package snapshot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/rs/zerolog"
)

// State is the trigger state observed between frames.
type State int

const (
	StateIdle State = iota
	StateArmed
)

func (s State) String() string {
	if s == StateArmed {
		return "armed"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "armed":
		*s = StateArmed
	case "idle":
		*s = StateIdle
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Settings are the controller-visible capture properties.
type Settings struct {
	FrameDelay int      `json:"frame_delay"`
	FileType   FileType `json:"file_type"`
	Location   string   `json:"location"`
}

// Stats counts frames and captures since the filter was created.
type Stats struct {
	FramesIn      uint64 `json:"frames_in"`
	FramesOut     uint64 `json:"frames_out"`
	Captures      uint64 `json:"captures"`
	CaptureErrors uint64 `json:"capture_errors"`
	State         State  `json:"state"`
	DelayCounter  int    `json:"delay_counter"`
}

// Filter is the snapshot stage. It is a frame.Sink that forwards every
// caps change, frame and EOS to its downstream sink unchanged, and writes
// one frame to disk each time the trigger fires.
//
// The trigger, delay counter, capture settings and counters share one
// mutex, so the setters may be called from a control goroutine while
// frames are being pushed.
type Filter struct {
	tracker    Tracker
	writer     *Writer
	downstream frame.Sink
	log        *zerolog.Logger

	mu           sync.Mutex
	armed        bool
	frameDelay   int
	delayCounter int
	fileType     FileType
	location     string
	stats        Stats

	listenersMu sync.Mutex
	listeners   []chan CaptureEvent
}

// NewFilter creates a filter that forwards to downstream. A nil downstream
// discards frames after processing; a nil writer uses NewWriter().
func NewFilter(downstream frame.Sink, writer *Writer) *Filter {
	if writer == nil {
		writer = NewWriter()
	}
	return &Filter{
		writer:     writer,
		downstream: downstream,
		log:        logger.WithComponent("snapshot"),
		fileType:   DefaultFileType,
		location:   DefaultLocation,
	}
}

// SetCaps tracks the new stream format and forwards the caps downstream.
// A rejected format is logged; it disables capture but not passthrough.
func (f *Filter) SetCaps(caps frame.Caps) error {
	format, err := f.tracker.OnFormatChanged(caps)
	if err != nil {
		f.log.Error().Err(err).Msg("Caps not usable for snapshots")
	} else {
		f.log.Debug().
			Int("width", format.Width).
			Int("height", format.Height).
			Int("stride", format.Stride).
			Str("layout", format.Layout.String()).
			Msg("Stream format changed")
		if !format.CanCapture() {
			f.log.Warn().Str("format", caps.Format).Msg("Pixel format is not RGB, snapshots disabled")
		}
	}

	if f.downstream == nil {
		return nil
	}
	return f.downstream.SetCaps(caps)
}

// PushFrame runs one step of the trigger state machine, writes the frame
// if the capture fires, then forwards the frame.
func (f *Filter) PushFrame(fr frame.Frame) error {
	f.mu.Lock()
	index := f.stats.FramesIn
	f.stats.FramesIn++

	if f.armed {
		f.delayCounter--
	}

	fire := false
	var fileType FileType
	var location string
	var seq uint64
	if f.delayCounter < 0 {
		fire = true
		f.armed = false
		f.delayCounter = f.frameDelay
		f.stats.Captures++
		seq = f.stats.Captures
		fileType = f.fileType
		location = ExpandLocation(f.location, index, seq)
	}
	f.mu.Unlock()

	if fire {
		f.capture(fr, index, seq, fileType, location)
	}

	if f.downstream == nil {
		f.countOut()
		return nil
	}
	if err := f.downstream.PushFrame(fr); err != nil {
		return fmt.Errorf("downstream rejected frame %d: %w", index, err)
	}
	f.countOut()
	return nil
}

// PushEOS forwards end-of-stream. A pending trigger is left armed.
func (f *Filter) PushEOS() error {
	f.log.Debug().Msg("End of stream")
	if f.downstream == nil {
		return nil
	}
	return f.downstream.PushEOS()
}

func (f *Filter) capture(fr frame.Frame, index, seq uint64, fileType FileType, location string) {
	format := f.tracker.Format()
	err := f.writer.Write(fr.Data, format, fileType, location)
	if err != nil {
		f.mu.Lock()
		f.stats.CaptureErrors++
		f.mu.Unlock()

		var werr *WriteError
		ev := f.log.Error().Err(err).Uint64("frame", index).Str("location", location)
		if errors.As(err, &werr) {
			ev = ev.Str("kind", werr.Kind.String())
		}
		ev.Msg("Snapshot failed")
	} else {
		f.log.Info().
			Uint64("frame", index).
			Str("location", location).
			Str("type", string(fileType)).
			Msg("Snapshot written")
	}
	f.publish(newCaptureEvent(seq, index, location, fileType, err))
}

func (f *Filter) countOut() {
	f.mu.Lock()
	f.stats.FramesOut++
	f.mu.Unlock()
}

// SetTrigger arms (or disarms) the next capture. Arming does not reseed the
// delay counter; only SetFrameDelay and a fired capture do.
func (f *Filter) SetTrigger(armed bool) {
	f.mu.Lock()
	f.armed = armed
	counter := f.delayCounter
	f.mu.Unlock()

	f.log.Debug().Bool("armed", armed).Int("delay_counter", counter).Msg("Trigger set")
}

// SetFrameDelay sets the number of frames skipped between the trigger and
// the capture, and reseeds the delay counter immediately.
func (f *Filter) SetFrameDelay(delay int) error {
	if delay < 0 {
		return fmt.Errorf("frame delay must be >= 0, got %d", delay)
	}
	f.mu.Lock()
	f.frameDelay = delay
	f.delayCounter = delay
	f.mu.Unlock()
	return nil
}

// FrameDelay returns the configured frame delay.
func (f *Filter) FrameDelay() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frameDelay
}

// SetFileType sets the image container for future captures.
func (f *Filter) SetFileType(name string) error {
	ft, err := ParseFileType(name)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.fileType = ft
	f.mu.Unlock()
	return nil
}

// FileType returns the image container used for captures.
func (f *Filter) FileType() FileType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileType
}

// SetLocation sets the output path (or path template) for future captures.
func (f *Filter) SetLocation(location string) error {
	if location == "" {
		return fmt.Errorf("location must not be empty")
	}
	f.mu.Lock()
	f.location = location
	f.mu.Unlock()
	return nil
}

// Location returns the output path (or path template).
func (f *Filter) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location
}

// SettingsUpdate names the properties to change; nil fields are kept.
type SettingsUpdate struct {
	FrameDelay *int    `json:"frame_delay,omitempty"`
	FileType   *string `json:"file_type,omitempty"`
	Location   *string `json:"location,omitempty"`
}

// Update validates every field of u, then applies them all under one lock
// hold. On error nothing changes. A new frame delay reseeds the counter.
func (f *Filter) Update(u SettingsUpdate) (Settings, error) {
	if u.FrameDelay != nil && *u.FrameDelay < 0 {
		return f.Settings(), fmt.Errorf("frame delay must be >= 0, got %d", *u.FrameDelay)
	}
	var ft FileType
	if u.FileType != nil {
		var err error
		if ft, err = ParseFileType(*u.FileType); err != nil {
			return f.Settings(), err
		}
	}
	if u.Location != nil && *u.Location == "" {
		return f.Settings(), fmt.Errorf("location must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if u.FrameDelay != nil {
		f.frameDelay = *u.FrameDelay
		f.delayCounter = *u.FrameDelay
	}
	if u.FileType != nil {
		f.fileType = ft
	}
	if u.Location != nil {
		f.location = *u.Location
	}
	return Settings{FrameDelay: f.frameDelay, FileType: f.fileType, Location: f.location}, nil
}

// Settings returns the capture properties in one consistent read.
func (f *Filter) Settings() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Settings{FrameDelay: f.frameDelay, FileType: f.fileType, Location: f.location}
}

// Format returns the tracked stream format.
func (f *Filter) Format() StreamFormat {
	return f.tracker.Format()
}

// State reports whether a capture is pending.
func (f *Filter) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.armed {
		return StateArmed
	}
	return StateIdle
}

// Stats returns a copy of the frame and capture counters.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.DelayCounter = f.delayCounter
	s.State = StateIdle
	if f.armed {
		s.State = StateArmed
	}
	return s
}
