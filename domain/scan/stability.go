package scan

import "image"

// Similarity returns the fraction of sampled pixels whose summed RGB
// difference between a and b is below diff. Buffers of different sizes
// compare as 0.
func Similarity(a, b *image.RGBA, stride, diff int) float64 {
	if a == nil || b == nil {
		return 0
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0
	}
	if stride < 1 {
		stride = 1
	}
	w := ab.Dx()
	n := w * ab.Dy()
	if n == 0 {
		return 0
	}
	matches, samples := 0, 0
	for p := 0; p < n; p += stride {
		x, y := p%w, p/w
		i := y*a.Stride + x*4
		j := y*b.Stride + x*4
		d := absDiff(a.Pix[i], b.Pix[j]) + absDiff(a.Pix[i+1], b.Pix[j+1]) + absDiff(a.Pix[i+2], b.Pix[j+2])
		if d < diff {
			matches++
		}
		samples++
	}
	return float64(matches) / float64(samples)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// StabilityTracker compares each analysis buffer with the one from the
// previous cycle. It keeps a single copy of the previous pixels, reused
// across cycles. Not safe for concurrent use.
type StabilityTracker struct {
	Stride int
	Diff   int
	prev   *image.RGBA
	has    bool
}

// NewStabilityTracker returns a tracker sampling every stride-th pixel and
// matching below diff.
func NewStabilityTracker(stride, diff int) *StabilityTracker {
	return &StabilityTracker{Stride: stride, Diff: diff}
}

// Compare returns the similarity of buf to the previous buffer, then retains a
// copy of buf as the new previous. The first call after Reset returns 0.
func (t *StabilityTracker) Compare(buf *image.RGBA) float64 {
	if buf == nil {
		return 0
	}
	ratio := 0.0
	if t.has {
		ratio = Similarity(t.prev, buf, t.Stride, t.Diff)
	}
	t.retain(buf)
	return ratio
}

// Reset drops the previous buffer.
func (t *StabilityTracker) Reset() { t.has = false }

func (t *StabilityTracker) retain(buf *image.RGBA) {
	b := buf.Bounds()
	w, h := b.Dx(), b.Dy()
	if t.prev == nil || t.prev.Bounds().Dx() != w || t.prev.Bounds().Dy() != h {
		t.prev = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		src := buf.Pix[y*buf.Stride : y*buf.Stride+w*4]
		copy(t.prev.Pix[y*t.prev.Stride:], src)
	}
	t.has = true
}
