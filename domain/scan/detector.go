package scan

import (
	"image"
	"math"
)

// Stats are luminance statistics over a sparse sample of a buffer.
type Stats struct {
	Count    int
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
}

// Contrast is the luminance range of the sample.
func (s Stats) Contrast() float64 { return s.Max - s.Min }

// luma uses the Rec. 601 weights.
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// LumaStats samples every stride-th pixel of buf in row-major order.
func LumaStats(buf *image.RGBA, stride int) Stats {
	if buf == nil {
		return Stats{}
	}
	if stride < 1 {
		stride = 1
	}
	b := buf.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h
	if n == 0 {
		return Stats{}
	}
	var sum, sumSq float64
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	count := 0
	for p := 0; p < n; p += stride {
		i := (p/w)*buf.Stride + (p%w)*4
		l := luma(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2])
		sum += l
		sumSq += l * l
		if l < lo {
			lo = l
		}
		if l > hi {
			hi = l
		}
		count++
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{Count: count, Mean: mean, Variance: variance, Min: lo, Max: hi}
}

// ContentDetector classifies an analysis buffer as content-bearing when both
// luminance variance and contrast reach their minimums.
type ContentDetector struct {
	MinVariance float64
	MinContrast float64
	Stride      int
}

// Evaluate returns the statistics and the classification.
func (d ContentDetector) Evaluate(buf *image.RGBA) (Stats, bool) {
	s := LumaStats(buf, d.Stride)
	if s.Count == 0 {
		return s, false
	}
	return s, s.Variance >= d.MinVariance && s.Contrast() >= d.MinContrast
}

// HasContent reports whether buf looks like it frames a printed subject.
func (d ContentDetector) HasContent(buf *image.RGBA) bool {
	_, ok := d.Evaluate(buf)
	return ok
}
