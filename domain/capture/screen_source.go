package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"
)

const sourceStatsLogInterval = 5 * time.Second

// grabFunc captures rect, or the whole screen when rect is empty.
type grabFunc func(rect image.Rectangle) (*image.RGBA, error)

func grabScreen(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return screenshot.CaptureScreen()
	}
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("capture: screen rect: %w", err)
	}
	r := rect.Intersect(screen)
	if r.Empty() {
		return nil, fmt.Errorf("capture: region %v outside screen %v", rect, screen)
	}
	return screenshot.CaptureRect(r)
}

// ScreenSource is a FrameSource backed by a desktop region. A background loop
// grabs the region at a fixed cadence and publishes the newest frame; the
// engine reads whichever frame is current when it ticks.
type ScreenSource struct {
	region   image.Rectangle
	interval time.Duration
	grab     grabFunc
	logger   *slog.Logger

	running atomic.Bool
	latest  atomic.Pointer[Frame]

	frames    atomic.Uint64
	skipped   atomic.Uint64
	grabNanos atomic.Uint64
	sequence  atomic.Uint64
}

var _ FrameSource = (*ScreenSource)(nil)

// NewScreenSource returns a source for region. An empty region captures the
// full primary screen. interval is the pause between grabs.
func NewScreenSource(logger *slog.Logger, region image.Rectangle, interval time.Duration) *ScreenSource {
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	return &ScreenSource{region: region, interval: interval, grab: grabScreen, logger: logger}
}

// Ready reports whether at least one frame has been grabbed.
func (s *ScreenSource) Ready() bool { return s.latest.Load() != nil }

// Dimensions returns the size of the latest frame, or 0, 0 before the first grab.
func (s *ScreenSource) Dimensions() (int, int) {
	f := s.latest.Load()
	if f == nil {
		return 0, 0
	}
	return f.Width(), f.Height()
}

// Frame returns the latest grabbed frame.
func (s *ScreenSource) Frame() (Frame, error) {
	f := s.latest.Load()
	if f == nil {
		return Frame{}, ErrSourceNotReady
	}
	return *f, nil
}

// Running reports whether the grab loop is active.
func (s *ScreenSource) Running() bool { return s.running.Load() }

// Run grabs frames until ctx is cancelled.
func (s *ScreenSource) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)
	logTicker := time.NewTicker(sourceStatsLogInterval)
	defer logTicker.Stop()
	pause := time.NewTimer(0)
	defer pause.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-logTicker.C:
			s.logStats()
			continue
		case <-pause.C:
		}
		s.grabOnce()
		pause.Reset(s.interval)
	}
}

func (s *ScreenSource) grabOnce() {
	start := time.Now()
	img, err := s.grab(s.region)
	if err != nil || img == nil {
		s.skipped.Add(1)
		if err != nil && s.logger != nil {
			s.logger.Error("capture grab", "region", s.region, "error", err)
		}
		return
	}
	s.grabNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.frames.Add(1)
	seq := s.sequence.Add(1)
	s.latest.Store(&Frame{Image: img, CapturedAt: time.Now(), Sequence: seq})
}

// Stats returns grab counters and timing.
func (s *ScreenSource) Stats() SourceStats {
	frames := s.frames.Load()
	total := s.grabNanos.Load()
	var avg time.Duration
	if frames > 0 {
		avg = time.Duration(total / frames)
	}
	st := SourceStats{Frames: frames, Skipped: s.skipped.Load(), AvgGrab: avg}
	if f := s.latest.Load(); f != nil {
		st.LastFrame = f.CapturedAt
		st.LatestFrameAge = time.Since(f.CapturedAt)
		st.Sequence = f.Sequence
	}
	return st
}

func (s *ScreenSource) logStats() {
	if s.logger == nil {
		return
	}
	st := s.Stats()
	s.logger.Debug("capture.stats",
		"frames", st.Frames,
		"skipped", st.Skipped,
		"avg_grab", st.AvgGrab,
		"age", st.LatestFrameAge,
	)
}
