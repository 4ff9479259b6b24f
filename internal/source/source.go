// Package source defines the upstream side of the pipeline: something that
// negotiates a raw video format and pushes frames into a frame.Sink.
package source

import (
	"context"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
)

// Source produces caps, frames and end-of-stream into a sink.
type Source interface {
	// Name returns a human-readable name for this source
	Name() string

	// Run pushes into sink until the stream ends or ctx is cancelled.
	// Caps are always announced before the first frame. EOS is pushed when
	// the stream ends on its own, not when ctx is cancelled.
	Run(ctx context.Context, sink frame.Sink) error
}
