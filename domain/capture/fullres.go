package capture

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropFull copies region out of frame at native resolution and, when outW and
// outH are positive, resamples it to that size with a Lanczos filter. The
// returned image owns its pixels and may outlive the frame.
func CropFull(frame Frame, region CropRegion, outW, outH int) (*image.NRGBA, error) {
	if frame.Image == nil {
		return nil, ErrSourceNotReady
	}
	r := region.Rect().Add(frame.Image.Bounds().Min).Intersect(frame.Image.Bounds())
	if r.Empty() {
		return nil, ErrDegenerateGeometry
	}
	crop := imaging.Crop(frame.Image, r)
	if outW <= 0 || outH <= 0 || (outW == r.Dx() && outH == r.Dy()) {
		return crop, nil
	}
	return imaging.Resize(crop, outW, outH, imaging.Lanczos), nil
}

// OutputSize returns the captured still dimensions for a guide rendered at
// scale. A non-positive scale means native crop size, reported as 0, 0.
func OutputSize(g GuideRect, scale float64) (int, int) {
	if scale <= 0 || g.Width <= 0 || g.Height <= 0 {
		return 0, 0
	}
	w := int(float64(g.Width)*scale + 0.5)
	h := int(float64(g.Height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
