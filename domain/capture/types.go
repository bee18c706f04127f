package capture

import (
	"errors"
	"image"
	"time"
)

// ErrSourceNotReady is returned by a FrameSource that has no dimensions yet.
var ErrSourceNotReady = errors.New("capture: source not ready")

// Frame is one snapshot of the live source. Image must not be mutated after
// the frame is handed out, and consumers must not keep it past one cycle:
// sources are free to reuse the backing buffer.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// FrameSource provides the live pixel stream the engine samples.
// Ready reports whether dimensions are known; Dimensions returns the native
// frame size; Frame returns the current frame.
type FrameSource interface {
	Ready() bool
	Dimensions() (width, height int)
	Frame() (Frame, error)
}
