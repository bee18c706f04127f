package images

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// GuideColor is the outline colour of the guide rectangle in previews.
var GuideColor = color.RGBA{R: 16, G: 185, B: 129, A: 255}

// ScaleRect maps r from a frame of size from onto a frame of size to.
func ScaleRect(r image.Rectangle, from, to image.Point) image.Rectangle {
	if from.X <= 0 || from.Y <= 0 {
		return image.Rectangle{}
	}
	sx := float64(to.X) / float64(from.X)
	sy := float64(to.Y) / float64(from.Y)
	return image.Rect(
		int(float64(r.Min.X)*sx+0.5), int(float64(r.Min.Y)*sy+0.5),
		int(float64(r.Max.X)*sx+0.5), int(float64(r.Max.Y)*sy+0.5),
	)
}

// GuideOverlay scales frame to fit maxW x maxH and outlines guide, given
// relative to the frame origin, with a border of the given thickness. The result is a
// new image; frame is not modified.
func GuideOverlay(frame image.Image, guide image.Rectangle, maxW, maxH, thickness int) *image.RGBA {
	if frame == nil {
		return nil
	}
	fb := frame.Bounds()
	scaled := ScaleToFit(frame, maxW, maxH)
	sb := scaled.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	draw.Copy(dst, image.Point{}, scaled, sb, draw.Src, nil)

	g := ScaleRect(guide, fb.Size(), sb.Size()).Intersect(dst.Bounds())
	if g.Empty() {
		return dst
	}
	if thickness < 1 {
		thickness = 1
	}
	fill := image.NewUniform(GuideColor)
	edges := []image.Rectangle{
		image.Rect(g.Min.X, g.Min.Y, g.Max.X, g.Min.Y+thickness),
		image.Rect(g.Min.X, g.Max.Y-thickness, g.Max.X, g.Max.Y),
		image.Rect(g.Min.X, g.Min.Y, g.Min.X+thickness, g.Max.Y),
		image.Rect(g.Max.X-thickness, g.Min.Y, g.Max.X, g.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(g), fill, image.Point{}, draw.Src)
	}
	return dst
}
