package capture

import (
	"errors"
	"image"
	"math"
)

// ErrDegenerateGeometry reports a zero or negative viewport or guide dimension.
var ErrDegenerateGeometry = errors.New("capture: degenerate geometry")

// ViewportGeometry holds the inputs of the cover-fit mapping between the source
// frame and the display surface it is shown on.
type ViewportGeometry struct {
	SourceWidth   int
	SourceHeight  int
	DisplayWidth  int
	DisplayHeight int
}

// Validate reports ErrDegenerateGeometry unless all four dimensions are positive.
func (v ViewportGeometry) Validate() error {
	if v.SourceWidth <= 0 || v.SourceHeight <= 0 || v.DisplayWidth <= 0 || v.DisplayHeight <= 0 {
		return ErrDegenerateGeometry
	}
	return nil
}

// GuideRect is the on-screen guide, in display pixels. It is always centered.
type GuideRect struct {
	Width  int
	Height int
}

// CropRegion is a rectangle in source-frame pixel coordinates.
type CropRegion struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the region has no area.
func (r CropRegion) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Rect converts the region to integer pixel bounds. Min is floored and Max is
// ceiled so that the rectangle covers every partially included pixel.
func (r CropRegion) Rect() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	x0 := int(math.Floor(r.X + 1e-9))
	y0 := int(math.Floor(r.Y + 1e-9))
	x1 := int(math.Ceil(r.X + r.Width - 1e-9))
	y1 := int(math.Ceil(r.Y + r.Height - 1e-9))
	return image.Rect(x0, y0, x1, y1)
}

// Clamp intersects the region with [0,w] x [0,h].
func (r CropRegion) Clamp(w, h int) CropRegion {
	x0 := math.Max(0, r.X)
	y0 := math.Max(0, r.Y)
	x1 := math.Min(float64(w), r.X+r.Width)
	y1 := math.Min(float64(h), r.Y+r.Height)
	if x1 <= x0 || y1 <= y0 {
		return CropRegion{}
	}
	return CropRegion{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Fit returns the cover-fit parameters: the number of source pixels per display
// pixel and the source-space offset of the visible area. Exactly one offset is
// non-zero when the aspect ratios differ.
func Fit(v ViewportGeometry) (scale, offsetX, offsetY float64) {
	sw, sh := float64(v.SourceWidth), float64(v.SourceHeight)
	dw, dh := float64(v.DisplayWidth), float64(v.DisplayHeight)
	// sw/sh > dw/dh without the division.
	if sw*dh > dw*sh {
		scale = sh / dh
		offsetX = (sw - dw*scale) / 2
		return scale, offsetX, 0
	}
	scale = sw / dw
	offsetY = (sh - dh*scale) / 2
	return scale, 0, offsetY
}

// MapGuide maps the centered guide rectangle into source-frame coordinates.
// A guide larger than the display is clamped to the display, which keeps the
// result inside the source frame. Degenerate inputs yield an empty region.
func MapGuide(v ViewportGeometry, g GuideRect) CropRegion {
	if v.Validate() != nil || g.Width <= 0 || g.Height <= 0 {
		return CropRegion{}
	}
	gw := math.Min(float64(g.Width), float64(v.DisplayWidth))
	gh := math.Min(float64(g.Height), float64(v.DisplayHeight))
	scale, offX, offY := Fit(v)
	left := (float64(v.DisplayWidth) - gw) / 2
	top := (float64(v.DisplayHeight) - gh) / 2
	r := CropRegion{
		X:      offX + left*scale,
		Y:      offY + top*scale,
		Width:  gw * scale,
		Height: gh * scale,
	}
	return r.Clamp(v.SourceWidth, v.SourceHeight)
}
