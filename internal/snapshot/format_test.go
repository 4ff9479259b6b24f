package snapshot

import (
	"errors"
	"testing"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RGB(t *testing.T) {
	var tr Tracker
	assert.Equal(t, LayoutUnset, tr.Format().Layout)
	assert.False(t, tr.Format().CanCapture())

	f, err := tr.OnFormatChanged(rgbCaps(64, 48))
	require.NoError(t, err)
	assert.Equal(t, StreamFormat{Width: 64, Height: 48, Stride: 192, Layout: LayoutRGB}, f)
	assert.Equal(t, f, tr.Format())
	assert.True(t, f.CanCapture())
	assert.Equal(t, 64*48*3, f.FrameSize())
}

func TestTracker_OtherLayoutUnsupported(t *testing.T) {
	var tr Tracker
	for _, name := range []string{"BGR", "RGBA", "rgb", "I420"} {
		f, err := tr.OnFormatChanged(frame.Caps{Width: 10, Height: 10, Format: name, Fixed: true})
		require.NoError(t, err)
		assert.Equal(t, LayoutUnsupported, f.Layout, name)
		assert.Equal(t, 30, f.Stride, name)
		assert.False(t, f.CanCapture(), name)
	}
}

func TestTracker_Errors(t *testing.T) {
	cases := []struct {
		name string
		caps frame.Caps
		kind FormatErrorKind
	}{
		{"no width", frame.Caps{Height: 10, Format: "RGB", Fixed: true}, MissingDimensions},
		{"no height", frame.Caps{Width: 10, Format: "RGB", Fixed: true}, MissingDimensions},
		{"negative", frame.Caps{Width: -1, Height: 10, Format: "RGB", Fixed: true}, MissingDimensions},
		{"no format", frame.Caps{Width: 10, Height: 10, Fixed: true}, MissingLayout},
		{"not fixed", frame.Caps{Width: 10, Height: 10, Format: "RGB"}, LayoutNotFixed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tr Tracker
			_, err := tr.OnFormatChanged(tc.caps)
			var ferr *FormatError
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tc.kind, ferr.Kind)
		})
	}
}

func TestTracker_NotFixedKeepsFormat(t *testing.T) {
	var tr Tracker
	_, err := tr.OnFormatChanged(rgbCaps(8, 8))
	require.NoError(t, err)

	_, err = tr.OnFormatChanged(frame.Caps{Width: 16, Height: 16, Format: "RGB"})
	require.Error(t, err)
	assert.Equal(t, 8, tr.Format().Width)
	assert.True(t, tr.Format().CanCapture())
}

func TestTracker_MissingFieldsResetFormat(t *testing.T) {
	var tr Tracker
	_, err := tr.OnFormatChanged(rgbCaps(8, 8))
	require.NoError(t, err)

	_, err = tr.OnFormatChanged(frame.Caps{Width: 16, Height: 16, Fixed: true})
	require.Error(t, err)
	assert.Equal(t, StreamFormat{}, tr.Format())
	assert.False(t, tr.Format().CanCapture())
}
