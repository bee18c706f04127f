package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestScaleToFit_KeepsAspect(t *testing.T) {
	src := solid(800, 400, color.RGBA{A: 255})
	out := ScaleToFit(src, 200, 200)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("expected 200x100, got %v", out.Bounds())
	}
	// already fits: original returned
	small := solid(50, 20, color.RGBA{A: 255})
	if ScaleToFit(small, 200, 200) != image.Image(small) {
		t.Fatal("expected original image when it already fits")
	}
	if ScaleToFit(nil, 10, 10) != nil {
		t.Fatal("expected nil for nil source")
	}
}

func TestEncodePNG_Decodes(t *testing.T) {
	b := EncodePNG(solid(4, 3, color.RGBA{R: 255, A: 255}))
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds %v", img.Bounds())
	}
	if EncodePNG(nil) != nil {
		t.Fatal("expected nil bytes for nil image")
	}
}

func TestScaleRect(t *testing.T) {
	r := ScaleRect(image.Rect(100, 50, 300, 150), image.Pt(400, 200), image.Pt(200, 100))
	if r != image.Rect(50, 25, 150, 75) {
		t.Fatalf("scaled rect %v", r)
	}
	if !ScaleRect(r, image.Pt(0, 10), image.Pt(10, 10)).Empty() {
		t.Fatal("expected empty rect for zero source size")
	}
}

func TestGuideOverlay_DrawsBorderOnly(t *testing.T) {
	frame := solid(400, 200, color.RGBA{A: 255})
	out := GuideOverlay(frame, image.Rect(100, 50, 300, 150), 200, 100, 2)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("overlay bounds %v", out.Bounds())
	}
	// guide maps to (50,25)-(150,75) in the preview.
	if got := out.RGBAAt(50, 25); got != GuideColor {
		t.Fatalf("corner not outlined: %v", got)
	}
	if got := out.RGBAAt(100, 50); got == GuideColor {
		t.Fatal("guide interior should not be filled")
	}
	if got := out.RGBAAt(10, 10); got == GuideColor {
		t.Fatal("outside of guide should not be outlined")
	}
	// source untouched
	if frame.RGBAAt(100, 50) != (color.RGBA{A: 255}) {
		t.Fatal("frame modified")
	}
}

func TestGuideOverlay_EmptyGuide(t *testing.T) {
	out := GuideOverlay(solid(40, 20, color.RGBA{A: 255}), image.Rectangle{}, 40, 20, 1)
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if out.RGBAAt(x, y) == GuideColor {
				t.Fatalf("unexpected outline at %d,%d", x, y)
			}
		}
	}
	if GuideOverlay(nil, image.Rect(0, 0, 1, 1), 1, 1, 1) != nil {
		t.Fatal("expected nil for nil frame")
	}
}
