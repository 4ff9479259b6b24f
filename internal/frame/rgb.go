package frame

import (
	"image"
	"image/color"
)

// BytesPerPixelRGB is the size of one packed RGB pixel.
const BytesPerPixelRGB = 3

// RGB is a read-only image.Image view over packed 24-bit RGB bytes.
// It does not copy the pixel buffer, so it inherits the lifetime of the
// frame it was built from.
type RGB struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewRGB wraps data as a width x height packed RGB image with the given stride.
// It returns nil if the buffer is too small for the geometry.
func NewRGB(data []byte, width, height, stride int) *RGB {
	if width <= 0 || height <= 0 || stride < width*BytesPerPixelRGB {
		return nil
	}
	if len(data) < (height-1)*stride+width*BytesPerPixelRGB {
		return nil
	}
	return &RGB{Pix: data, Stride: stride, Rect: image.Rect(0, 0, width, height)}
}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

// RGBAAt returns the pixel at (x, y) as an opaque color.RGBA.
func (p *RGB) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*BytesPerPixelRGB
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: 255}
}

// ToRGBA copies the view into a newly allocated *image.RGBA.
func (p *RGB) ToRGBA() *image.RGBA {
	w, h := p.Rect.Dx(), p.Rect.Dy()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := p.Pix[y*p.Stride : y*p.Stride+w*BytesPerPixelRGB]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 255
		}
	}
	return img
}
