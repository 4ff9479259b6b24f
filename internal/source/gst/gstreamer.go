// Package gst runs a GStreamer pipeline in-process through go-gst and
// feeds its output into a frame.Sink.
package gst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/bryanchriswhite/SnapshotFilter/internal/source"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

const sinkName = "snapshotsink"

// Pipeline is a source backed by a gst-launch style description. An appsink
// is appended to the description, so it should end in raw video caps, e.g.
//
//	v4l2src ! videoconvert ! video/x-raw,format=RGB
type Pipeline struct {
	description string
	pollTimeout time.Duration
}

// NewPipeline creates a GStreamer source for the given description
func NewPipeline(description string) (*Pipeline, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("empty pipeline description")
	}
	return &Pipeline{description: description, pollTimeout: 20 * time.Millisecond}, nil
}

// Name returns the source name
func (p *Pipeline) Name() string {
	return "gstreamer"
}

// Run starts the pipeline and pulls samples from the appsink until EOS or
// ctx is cancelled. Samples are pulled by polling rather than through
// new-sample callbacks, which keeps all frame handling on this goroutine.
func (p *Pipeline) Run(ctx context.Context, sink frame.Sink) error {
	log := logger.WithComponent("gstreamer")

	gst.Init(nil)

	launch := fmt.Sprintf("%s ! appsink name=%s emit-signals=false max-buffers=2 sync=false", p.description, sinkName)
	log.Debug().Str("pipeline", launch).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Unref()

	sinkElement, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		return fmt.Errorf("failed to get appsink: %w", err)
	}
	appsink := app.SinkFromElement(sinkElement)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer pipeline.SetState(gst.StateNull)

	log.Info().Msg("GStreamer pipeline started")

	var (
		lastCaps string
		index    uint64
	)
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", index).Msg("GStreamer pipeline stopped")
			return nil
		default:
		}

		sample := appsink.TryPullSample(p.pollTimeout)
		if sample == nil {
			if appsink.IsEOS() {
				log.Info().Uint64("frames", index).Msg("End of stream")
				return sink.PushEOS()
			}
			continue
		}

		// go-gst releases samples itself; calling Unref here double-frees
		if err := pushSample(sample, sink, &lastCaps, index); err != nil {
			return err
		}
		index++
	}
}

// pushSample forwards a caps change (if any) and the sample's buffer. The
// buffer stays mapped only for the duration of PushFrame.
func pushSample(sample *gst.Sample, sink frame.Sink, lastCaps *string, index uint64) error {
	if caps := sample.GetCaps(); caps != nil {
		if s := caps.String(); s != *lastCaps {
			*lastCaps = s
			if err := sink.SetCaps(source.ParseCaps(s)); err != nil {
				return fmt.Errorf("failed to set caps: %w", err)
			}
		}
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil
	}
	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return nil
	}
	defer buffer.Unmap()

	return sink.PushFrame(frame.Frame{Data: mapInfo.Bytes(), Index: index})
}
