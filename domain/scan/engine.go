package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/card-scan-go/config"
	"github.com/soocke/card-scan-go/domain/capture"
)

// Engine runs the sampling loop: each tick samples the guide region of the
// current frame, updates content and stability, steps the trigger and fires a
// full-resolution capture when the trigger says so. All pipeline state is
// owned by the loop goroutine; other goroutines talk to it through events.
type Engine struct {
	logger   *slog.Logger
	interval time.Duration

	source   capture.FrameSource
	sampler  *capture.Sampler
	detector ContentDetector
	tracker  *StabilityTracker
	trigger  *Trigger

	guide              capture.GuideRect
	displayW, displayH int
	outW, outH         int
	side               Side
	cardID             string
	auto               bool

	events   chan any
	done     chan struct{}
	stopOnce sync.Once
	gen      atomic.Uint64
	running  atomic.Bool
	state    atomic.Pointer[DetectionState]

	mu               sync.Mutex
	stateListeners   []StateListener
	captureListeners []CaptureListener

	// spawn runs capture delivery off the loop.
	spawn func(func())

	cycles     atomic.Uint64
	skipped    atomic.Uint64
	captures   atomic.Uint64
	manual     atomic.Uint64
	cycleNanos atomic.Uint64
}

// events
type (
	evtAuto        struct{ on bool }
	evtSide        struct{ side Side }
	evtCardID      struct{ id string }
	evtViewport    struct{ w, h int }
	evtCapture     struct{ reply chan error }
	evtCaptureDone struct{ id string }
)

// NewEngine builds an engine over src using cfg. cfg is copied; later changes
// to it are not observed.
func NewEngine(logger *slog.Logger, cfg *config.Config, src capture.FrameSource) (*Engine, error) {
	if src == nil {
		return nil, errors.New("scan: nil frame source")
	}
	var c config.Config
	if cfg == nil {
		c = *config.DefaultConfig()
	} else {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("scan: config: %w", err)
	}
	side, err := ParseSide(c.Side)
	if err != nil {
		return nil, err
	}
	guide := capture.GuideRect{Width: c.GuideWidth, Height: c.GuideHeight}
	outW, outH := capture.OutputSize(guide, c.OutputScale)
	e := &Engine{
		logger:   logger,
		interval: c.Interval(),
		source:   src,
		sampler:  capture.NewSampler(c.AnalysisWidth, c.AnalysisHeight),
		detector: ContentDetector{MinVariance: c.MinVariance, MinContrast: c.MinContrast, Stride: c.DetectStride},
		tracker:  NewStabilityTracker(c.StabilityStride, c.PixelDiffThreshold),
		trigger:  NewTrigger(c.StabilityFrames, c.StabilityThreshold),
		guide:    guide,
		displayW: c.DisplayWidth,
		displayH: c.DisplayHeight,
		outW:     outW,
		outH:     outH,
		side:     side,
		cardID:   c.CardID,
		auto:     c.AutoMode,
		events:   make(chan any, 64),
		done:     make(chan struct{}),
		spawn:    func(f func()) { go f() },
	}
	st := e.snapshot()
	e.state.Store(&st)
	return e, nil
}

// Run drives the loop until ctx is cancelled or Stop is called. It returns an
// error if the engine is already running or was stopped.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("scan: engine already running")
	}
	defer e.running.Store(false)
	gen := e.gen.Load()
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	if e.logger != nil {
		e.logger.Info("scan engine started", "interval", e.interval, "side", e.side.String(), "auto", e.auto)
	}
	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return nil
		case <-e.done:
			return nil
		case ev := <-e.events:
			e.handle(ev)
		case <-ticker.C:
			// a tick racing Stop must not run a cycle.
			if e.gen.Load() != gen {
				return nil
			}
			e.cycle()
		}
	}
}

// Stop ends the loop. No cycle starts after Stop returns.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.gen.Add(1)
		close(e.done)
		if e.logger != nil {
			e.logger.Info("scan engine stopped")
		}
	})
}

// Done is closed once Stop has been called.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) post(ev any) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	select {
	case <-e.done:
		return ErrEngineStopped
	case e.events <- ev:
		return nil
	}
}

func (e *Engine) handle(ev any) {
	switch ev := ev.(type) {
	case evtAuto:
		if e.auto == ev.on {
			return
		}
		e.auto = ev.on
		e.resetDetection()
		if e.logger != nil {
			e.logger.Info("auto mode", "enabled", ev.on)
		}
		e.publish()
	case evtSide:
		if e.side == ev.side {
			return
		}
		e.side = ev.side
		e.resetDetection()
		if e.logger != nil {
			e.logger.Info("side switched", "side", ev.side.String())
		}
		e.publish()
	case evtCardID:
		e.cardID = ev.id
	case evtViewport:
		if ev.w <= 0 || ev.h <= 0 {
			if e.logger != nil {
				e.logger.Warn("viewport ignored", "width", ev.w, "height", ev.h)
			}
			return
		}
		if e.displayW == ev.w && e.displayH == ev.h {
			return
		}
		e.displayW, e.displayH = ev.w, ev.h
		if e.logger != nil {
			e.logger.Info("viewport changed", "width", ev.w, "height", ev.h)
		}
		e.publish()
	case evtCapture:
		err := e.captureManual()
		if ev.reply != nil {
			ev.reply <- err
		}
	case evtCaptureDone:
		e.trigger.Finish()
		e.publish()
	}
}

func (e *Engine) resetDetection() {
	e.trigger.Reset()
	e.tracker.Reset()
}

// cycle runs one analysis pass. Every failure degrades to a skipped cycle.
func (e *Engine) cycle() {
	start := time.Now()
	if !e.auto || e.trigger.Phase() == PhaseCapturing {
		e.skipped.Add(1)
		return
	}
	if !e.source.Ready() {
		e.skipped.Add(1)
		return
	}
	frame, err := e.source.Frame()
	if err != nil {
		e.skip("frame", err)
		return
	}
	region := e.region(frame)
	buf, err := e.sampler.Sample(frame, region)
	if err != nil {
		e.skip("sample", err)
		return
	}
	_, hasContent := e.detector.Evaluate(buf)
	similarity := e.tracker.Compare(buf)
	decision := e.trigger.Step(hasContent, similarity)
	e.cycles.Add(1)
	e.cycleNanos.Add(uint64(time.Since(start).Nanoseconds()))
	e.publish()
	if decision == Fire {
		if err := e.fire(false); err != nil && e.logger != nil {
			e.logger.Error("auto capture failed", "error", err)
		}
	}
}

func (e *Engine) skip(stage string, err error) {
	e.skipped.Add(1)
	if e.logger != nil && !errors.Is(err, capture.ErrSourceNotReady) {
		e.logger.Debug("cycle skipped", "stage", stage, "error", err)
	}
}

func (e *Engine) region(frame capture.Frame) capture.CropRegion {
	v := capture.ViewportGeometry{
		SourceWidth:   frame.Width(),
		SourceHeight:  frame.Height(),
		DisplayWidth:  e.displayW,
		DisplayHeight: e.displayH,
	}
	return capture.MapGuide(v, e.guide)
}

func (e *Engine) captureManual() error {
	if !e.trigger.BeginManual() {
		return ErrCaptureInFlight
	}
	e.publish()
	if err := e.fire(true); err != nil {
		return err
	}
	e.manual.Add(1)
	return nil
}

// fire crops the guide region of the current frame at native resolution and
// hands the event to capture listeners. The trigger must already be
// Capturing; it returns to Idle once delivery completes or on error.
func (e *Engine) fire(manual bool) error {
	start := time.Now()
	ev, err := e.grab(manual)
	if err != nil {
		e.trigger.Finish()
		e.publish()
		return err
	}
	e.captures.Add(1)
	if e.logger != nil {
		e.logger.Info("capture fired",
			"id", ev.ID,
			"side", ev.Side.String(),
			"manual", manual,
			"crop_x", int(ev.Crop.X), "crop_y", int(ev.Crop.Y),
			"crop_w", int(ev.Crop.Width), "crop_h", int(ev.Crop.Height),
			"elapsed", time.Since(start),
		)
	}
	listeners := e.captureListenersSnapshot()
	e.spawn(func() {
		defer func() { _ = e.post(evtCaptureDone{id: ev.ID}) }()
		defer recoverLog(e.logger, "capture listener panic")
		for _, l := range listeners {
			l(ev)
		}
	})
	return nil
}

func (e *Engine) grab(manual bool) (CaptureEvent, error) {
	if !e.source.Ready() {
		return CaptureEvent{}, capture.ErrSourceNotReady
	}
	frame, err := e.source.Frame()
	if err != nil {
		return CaptureEvent{}, fmt.Errorf("scan: frame: %w", err)
	}
	region := e.region(frame)
	img, err := capture.CropFull(frame, region, e.outW, e.outH)
	if err != nil {
		return CaptureEvent{}, fmt.Errorf("scan: crop: %w", err)
	}
	return CaptureEvent{
		ID:         uuid.NewString(),
		Image:      img,
		Side:       e.side,
		CardID:     e.cardID,
		Crop:       region,
		CapturedAt: frame.CapturedAt,
		Manual:     manual,
	}, nil
}

func (e *Engine) snapshot() DetectionState {
	st := e.trigger.State()
	st.AutoMode = e.auto
	st.Side = e.side
	st.DisplayWidth, st.DisplayHeight = e.displayW, e.displayH
	return st
}

func (e *Engine) publish() {
	st := e.snapshot()
	e.state.Store(&st)
	e.mu.Lock()
	listeners := append([]StateListener(nil), e.stateListeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l(st)
	}
}

func (e *Engine) captureListenersSnapshot() []CaptureListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]CaptureListener(nil), e.captureListeners...)
}

// Public API implements Controller.

func (e *Engine) State() DetectionState { return *e.state.Load() }
func (e *Engine) AutoMode() bool        { return e.State().AutoMode }

func (e *Engine) AddStateListener(l StateListener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	e.stateListeners = append(e.stateListeners, l)
	e.mu.Unlock()
}

func (e *Engine) AddCaptureListener(l CaptureListener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	e.captureListeners = append(e.captureListeners, l)
	e.mu.Unlock()
}

// SetAutoMode enables or disables automatic capture. Any change clears the
// counter, progress and detection flag.
func (e *Engine) SetAutoMode(on bool) error { return e.post(evtAuto{on: on}) }

// SetSide switches the side stamped on later captures and clears detection.
func (e *Engine) SetSide(s Side) error { return e.post(evtSide{side: s}) }

// SetCardID sets the card identifier passed through into later captures.
func (e *Engine) SetCardID(id string) error { return e.post(evtCardID{id: id}) }

// SetViewport updates the display dimensions the guide is drawn on.
func (e *Engine) SetViewport(w, h int) error { return e.post(evtViewport{w: w, h: h}) }

// CaptureNow requests a manual capture and waits for the loop to take it. It
// returns ErrCaptureInFlight when a capture is already being delivered.
func (e *Engine) CaptureNow(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := e.post(evtCapture{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns loop counters.
func (e *Engine) Stats() EngineStats {
	cycles := e.cycles.Load()
	var avg time.Duration
	if cycles > 0 {
		avg = time.Duration(e.cycleNanos.Load() / cycles)
	}
	return EngineStats{
		Cycles:         cycles,
		Skipped:        e.skipped.Load(),
		Captures:       e.captures.Load(),
		ManualCaptures: e.manual.Load(),
		AvgCycle:       avg,
	}
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r)
		}
	}
}

var _ Controller = (*Engine)(nil)
