package snapshot

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

var rgbFormat = StreamFormat{Width: 16, Height: 8, Stride: 48, Layout: LayoutRGB}

func decodeFile(t *testing.T, path string, decode func(io.Reader) (image.Image, error)) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := decode(f)
	require.NoError(t, err)
	return img
}

func TestWriter_LosslessFormats(t *testing.T) {
	cases := []struct {
		fileType FileType
		decode   func(io.Reader) (image.Image, error)
	}{
		{FileTypeBMP, bmp.Decode},
		{FileTypePNG, png.Decode},
	}
	for _, tc := range cases {
		t.Run(string(tc.fileType), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out."+string(tc.fileType))
			require.NoError(t, NewWriter().Write(gradient(16, 8), rgbFormat, tc.fileType, path))

			img := decodeFile(t, path, tc.decode)
			assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
			r, g, b, a := img.At(5, 3).RGBA()
			assert.Equal(t, color.RGBA{5, 3, 7, 255}, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)})
		})
	}
}

func TestWriter_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	w := &Writer{JPEGQuality: 75}
	require.NoError(t, w.Write(gradient(16, 8), rgbFormat, FileTypeJPEG, path))

	img := decodeFile(t, path, jpeg.Decode)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestWriter_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0644))

	require.NoError(t, NewWriter().Write(gradient(16, 8), rgbFormat, FileTypePNG, path))
	decodeFile(t, path, png.Decode)
}

func TestWriter_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	for _, format := range []StreamFormat{
		{},
		{Width: 16, Height: 8, Stride: 48, Layout: LayoutUnsupported},
	} {
		err := NewWriter().Write(gradient(16, 8), format, FileTypePNG, path)
		var werr *WriteError
		require.True(t, errors.As(err, &werr))
		assert.Equal(t, UnsupportedFormat, werr.Kind)
	}
	assert.NoFileExists(t, path)
}

func TestWriter_ShortBufferLeavesFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	err := NewWriter().Write(make([]byte, 10), rgbFormat, FileTypePNG, path)
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, EncodeFailed, werr.Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestWriter_UnknownFileTypeIsEncodeFailure(t *testing.T) {
	err := NewWriter().Write(gradient(16, 8), rgbFormat, FileType("gif"), filepath.Join(t.TempDir(), "x.gif"))
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, EncodeFailed, werr.Kind)
}

func TestWriter_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.bmp")
	err := NewWriter().Write(gradient(16, 8), rgbFormat, FileTypeBMP, path)
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, IoFailed, werr.Kind)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseFileType(t *testing.T) {
	for in, want := range map[string]FileType{"bmp": FileTypeBMP, "PNG": FileTypePNG, "jpeg": FileTypeJPEG, " jpg ": FileTypeJPEG} {
		got, err := ParseFileType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFileType("tiff")
	assert.Error(t, err)
}

func TestExpandLocation(t *testing.T) {
	assert.Equal(t, "image.bmp", ExpandLocation("image.bmp", 4, 2))
	assert.Equal(t, "shots/f12-c3.png", ExpandLocation("shots/f{frame}-c{capture}.png", 12, 3))
}
