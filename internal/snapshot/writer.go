package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/SnapshotFilter/internal/frame"
	"golang.org/x/image/bmp"
)

// FileType is the container a snapshot is written in.
type FileType string

const (
	FileTypeBMP  FileType = "bmp"
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
)

const (
	DefaultFileType    = FileTypeBMP
	DefaultLocation    = "image.bmp"
	DefaultJPEGQuality = 90
)

// ParseFileType accepts "bmp", "png" and "jpeg" (case-insensitive, "jpg" is
// taken as jpeg).
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bmp":
		return FileTypeBMP, nil
	case "png":
		return FileTypePNG, nil
	case "jpeg", "jpg":
		return FileTypeJPEG, nil
	default:
		return "", fmt.Errorf("unsupported file type: %q (use bmp, png or jpeg)", s)
	}
}

// ExpandLocation substitutes {frame} and {capture} in a location template.
// Locations without placeholders are returned unchanged, so every capture
// overwrites the same file.
func ExpandLocation(location string, frameIndex, capture uint64) string {
	if !strings.Contains(location, "{") {
		return location
	}
	r := strings.NewReplacer(
		"{frame}", strconv.FormatUint(frameIndex, 10),
		"{capture}", strconv.FormatUint(capture, 10),
	)
	return r.Replace(location)
}

// Writer encodes raw RGB frames to image files.
type Writer struct {
	JPEGQuality int
}

// NewWriter returns a writer with default encoder settings.
func NewWriter() *Writer {
	return &Writer{JPEGQuality: DefaultJPEGQuality}
}

// Write encodes data, laid out as described by format, and writes it to
// location, replacing any existing file. The frame is encoded in memory
// first so a failed encode leaves the previous file intact.
func (w *Writer) Write(data []byte, format StreamFormat, fileType FileType, location string) error {
	if !format.CanCapture() {
		return &WriteError{Kind: UnsupportedFormat, Location: location,
			Err: fmt.Errorf("pixel layout is %s", format.Layout)}
	}
	if format.Width <= 0 || format.Height <= 0 {
		return &WriteError{Kind: EncodeFailed, Location: location,
			Err: fmt.Errorf("invalid dimensions %dx%d", format.Width, format.Height)}
	}
	if len(data) < format.FrameSize() {
		return &WriteError{Kind: EncodeFailed, Location: location,
			Err: fmt.Errorf("frame has %d bytes, need %d", len(data), format.FrameSize())}
	}

	img := frame.NewRGB(data, format.Width, format.Height, format.Stride)
	if img == nil {
		return &WriteError{Kind: EncodeFailed, Location: location,
			Err: fmt.Errorf("cannot build %dx%d image view", format.Width, format.Height)}
	}

	var buf bytes.Buffer
	buf.Grow(format.FrameSize())
	if err := w.encode(&buf, img, fileType); err != nil {
		return &WriteError{Kind: EncodeFailed, Location: location, Err: err}
	}

	if err := os.WriteFile(location, buf.Bytes(), 0644); err != nil {
		return &WriteError{Kind: IoFailed, Location: location, Err: err}
	}
	return nil
}

func (w *Writer) encode(out io.Writer, img image.Image, fileType FileType) error {
	switch fileType {
	case FileTypeBMP:
		return bmp.Encode(out, img)
	case FileTypePNG:
		return png.Encode(out, img)
	case FileTypeJPEG:
		q := w.JPEGQuality
		if q <= 0 || q > 100 {
			q = DefaultJPEGQuality
		}
		return jpeg.Encode(out, img, &jpeg.Options{Quality: q})
	default:
		return fmt.Errorf("unsupported file type: %q", fileType)
	}
}
