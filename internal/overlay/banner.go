// Package overlay draws status text onto preview images.
package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Banner draws one line of text in a box anchored at the top-left corner
type Banner struct {
	TextColor  color.RGBA
	Background color.RGBA // alpha < 255 lets the frame show through
	Padding    int
}

// NewBanner returns a white-on-translucent-black banner
func NewBanner() *Banner {
	return &Banner{
		TextColor:  color.RGBA{255, 255, 255, 255},
		Background: color.RGBA{0, 0, 0, 160},
		Padding:    4,
	}
}

// Size returns the banner box size for text
func (b *Banner) Size(text string) image.Point {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	return image.Point{
		X: d.MeasureString(text).Ceil() + b.Padding*2,
		Y: face.Metrics().Height.Ceil() + b.Padding*2,
	}
}

// Render draws text onto img, clipped to its bounds. Empty text draws nothing.
func (b *Banner) Render(img draw.Image, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	bounds := img.Bounds()

	box := image.Rectangle{Min: bounds.Min, Max: bounds.Min.Add(b.Size(text))}.Intersect(bounds)
	draw.Draw(img, box, image.NewUniform(b.Background), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(b.TextColor),
		Face: face,
		Dot: fixed.P(
			bounds.Min.X+b.Padding,
			bounds.Min.Y+b.Padding+face.Metrics().Ascent.Ceil(),
		),
	}
	d.DrawString(text)
}
