// Package output holds the downstream consumers of the filtered stream.
package output

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// Output is a frame.Sink with a lifecycle.
// Implementations:
// - MJPEG HTTP preview stream
// - Counter (discards frames, like a fakesink)
type Output interface {
	frame.Sink

	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for preview outputs
type Config struct {
	FPS      int
	MaxWidth int
	Quality  int
}

// Tee forwards everything to several outputs in order. Every output sees
// every call even when an earlier one fails; the errors are joined.
type Tee struct {
	outputs []Output
}

// NewTee creates a tee over the given outputs
func NewTee(outputs ...Output) *Tee {
	return &Tee{outputs: outputs}
}

// Start starts every output, stopping the ones already started on failure
func (t *Tee) Start() error {
	for i, o := range t.outputs {
		if err := o.Start(); err != nil {
			for _, started := range t.outputs[:i] {
				started.Stop()
			}
			return fmt.Errorf("failed to start %s: %w", o.Name(), err)
		}
	}
	return nil
}

// Stop stops every output
func (t *Tee) Stop() error {
	var errs []error
	for _, o := range t.outputs {
		if err := o.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tee) SetCaps(caps frame.Caps) error {
	return t.each(func(o Output) error { return o.SetCaps(caps) })
}

func (t *Tee) PushFrame(f frame.Frame) error {
	return t.each(func(o Output) error { return o.PushFrame(f) })
}

func (t *Tee) PushEOS() error {
	return t.each(func(o Output) error { return o.PushEOS() })
}

func (t *Tee) each(fn func(Output) error) error {
	var errs []error
	for _, o := range t.outputs {
		if err := fn(o); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
		}
	}
	return errors.Join(errs...)
}
