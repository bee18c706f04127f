package model

import (
	"image"
	"sync/atomic"

	"github.com/soocke/card-scan-go/domain/scan"
)

// ScanModel mirrors the engine's auto mode, side and display viewport for the
// UI thread. The zero value is auto off, front side, no viewport, and is usable.
// Concurrency-safe because engine listeners and presenter ticks may race.
type ScanModel struct {
	auto atomic.Bool
	side atomic.Int32
	// packed as w<<32 | h
	viewport atomic.Uint64
}

// AutoMode reports whether automatic capture is on.
func (m *ScanModel) AutoMode() bool {
	if m == nil {
		return false
	}
	return m.auto.Load()
}

// SetAutoMode stores the auto flag.
func (m *ScanModel) SetAutoMode(b bool) {
	if m == nil {
		return
	}
	m.auto.Store(b)
}

// Side returns the side the next capture is tagged with.
func (m *ScanModel) Side() scan.Side {
	if m == nil {
		return scan.SideFront
	}
	return scan.Side(m.side.Load())
}

// SetSide stores s.
func (m *ScanModel) SetSide(s scan.Side) {
	if m == nil {
		return
	}
	m.side.Store(int32(s))
}

// SetViewport stores the display size the guide is laid out on. Non-positive
// sizes are ignored.
func (m *ScanModel) SetViewport(w, h int) {
	if m == nil || w <= 0 || h <= 0 {
		return
	}
	m.viewport.Store(uint64(uint32(w))<<32 | uint64(uint32(h)))
}

// Viewport returns the last stored display size, or the zero point.
func (m *ScanModel) Viewport() image.Point {
	if m == nil {
		return image.Point{}
	}
	v := m.viewport.Load()
	return image.Pt(int(v>>32), int(uint32(v)))
}
