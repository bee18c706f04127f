package capture

import (
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// StaticSource is a FrameSource serving a caller-supplied image. It backs
// headless runs over still files and tests. A nil image means not ready.
type StaticSource struct {
	mu  sync.RWMutex
	img *image.RGBA
	seq uint64
}

var _ FrameSource = (*StaticSource)(nil)

// NewStaticSource returns a source serving img, converted to RGBA when needed.
func NewStaticSource(img image.Image) *StaticSource {
	s := &StaticSource{}
	s.Set(img)
	return s
}

// Set replaces the served image. Passing nil makes the source not ready.
func (s *StaticSource) Set(img image.Image) {
	rgba := toRGBA(img)
	s.mu.Lock()
	s.img = rgba
	s.seq++
	s.mu.Unlock()
}

func (s *StaticSource) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img != nil && !s.img.Bounds().Empty()
}

func (s *StaticSource) Dimensions() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *StaticSource) Frame() (Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil || s.img.Bounds().Empty() {
		return Frame{}, ErrSourceNotReady
	}
	return Frame{Image: s.img, CapturedAt: time.Now(), Sequence: s.seq}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
