package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// Sampler rasterizes the crop region of a frame into a small fixed-size
// analysis buffer. The buffer is allocated once and overwritten in place on
// every call, so callers that need the pixels beyond the next call must copy.
// Not safe for concurrent use.
type Sampler struct {
	buf *image.RGBA
}

// NewSampler returns a sampler producing w x h analysis buffers.
func NewSampler(w, h int) *Sampler {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Sampler{buf: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Size returns the analysis buffer dimensions.
func (s *Sampler) Size() (int, int) {
	b := s.buf.Bounds()
	return b.Dx(), b.Dy()
}

// Sample downsamples region of frame into the analysis buffer with nearest
// neighbour scaling. It returns ErrDegenerateGeometry when the region does not
// overlap the frame.
func (s *Sampler) Sample(frame Frame, region CropRegion) (*image.RGBA, error) {
	if frame.Image == nil {
		return nil, ErrSourceNotReady
	}
	sr := region.Rect().Add(frame.Image.Bounds().Min).Intersect(frame.Image.Bounds())
	if sr.Empty() {
		return nil, ErrDegenerateGeometry
	}
	draw.NearestNeighbor.Scale(s.buf, s.buf.Bounds(), frame.Image, sr, draw.Src, nil)
	return s.buf, nil
}
