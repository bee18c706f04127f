package scan

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/soocke/card-scan-go/config"
	"github.com/soocke/card-scan-go/domain/capture"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// blockFrame paints a w x h frame with a 10px black/white checkerboard.
func blockFrame(w, h int) *image.RGBA {
	return synthBuf(w, h, 0, func(px []byte, w, h int) {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if (x/10+y/10)%2 == 0 {
					i := (y*w + x) * 4
					px[i], px[i+1], px[i+2] = 255, 255, 255
				}
			}
		}
	})
}

type captureRecorder struct {
	mu     sync.Mutex
	events []CaptureEvent
}

func (r *captureRecorder) listen(ev CaptureEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *captureRecorder) all() []CaptureEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CaptureEvent(nil), r.events...)
}

// newTestEngine builds an engine over a 640x400 source shown on a 640x400
// display, with capture delivery run inline.
func newTestEngine(t *testing.T, src capture.FrameSource, mutate func(*config.Config)) (*Engine, *captureRecorder) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DisplayWidth, cfg.DisplayHeight = 640, 400
	if mutate != nil {
		mutate(cfg)
	}
	e, err := NewEngine(discardLogger, cfg, src)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.spawn = func(f func()) { f() }
	rec := &captureRecorder{}
	e.AddCaptureListener(rec.listen)
	return e, rec
}

// drain handles queued events the way the loop would.
func drain(e *Engine) {
	for {
		select {
		case ev := <-e.events:
			e.handle(ev)
		default:
			return
		}
	}
}

func TestEngine_AutoCaptureAfterStableRun(t *testing.T) {
	e, rec := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), nil)
	var phases []Phase
	e.AddStateListener(func(st DetectionState) { phases = append(phases, st.Phase) })
	// the first cycle has no previous buffer, so 20 stable comparisons need 21 cycles.
	for i := 1; i <= 20; i++ {
		e.cycle()
		if n := len(rec.all()); n != 0 {
			t.Fatalf("captured early on cycle %d", i)
		}
	}
	if st := e.State(); st.StabilityCount != 19 || !st.CardDetected || st.Phase != PhaseAccumulating {
		t.Fatalf("state before capture: %+v", st)
	}
	e.cycle()
	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("expected one capture, got %d", len(events))
	}
	ev := events[0]
	if ev.Manual || ev.Side != SideFront || ev.ID == "" {
		t.Fatalf("event=%+v", ev)
	}
	if b := ev.Image.Bounds(); b.Dx() != 700 || b.Dy() != 440 {
		t.Fatalf("capture size=%v", b)
	}
	if ev.Crop != (capture.CropRegion{X: 145, Y: 90, Width: 350, Height: 220}) {
		t.Fatalf("crop=%+v", ev.Crop)
	}
	if e.State().Phase != PhaseCapturing {
		t.Fatalf("phase=%v want capturing until delivery is acknowledged", e.State().Phase)
	}
	drain(e)
	if st := e.State(); st.Phase != PhaseIdle || st.StabilityCount != 0 || st.Progress != 0 {
		t.Fatalf("state after capture: %+v", st)
	}
	capturing := 0
	for _, p := range phases {
		if p == PhaseCapturing {
			capturing++
		}
	}
	if capturing != 1 {
		t.Fatalf("capturing published %d times", capturing)
	}
	if s := e.Stats(); s.Captures != 1 || s.Cycles != 21 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestEngine_ContentLostNeverCaptures(t *testing.T) {
	src := capture.NewStaticSource(blockFrame(640, 400))
	e, rec := newTestEngine(t, src, nil)
	for i := 0; i < 11; i++ {
		e.cycle()
	}
	if e.State().StabilityCount != 10 {
		t.Fatalf("state=%+v", e.State())
	}
	src.Set(synthBuf(640, 400, 90, nil))
	for i := 0; i < 10; i++ {
		e.cycle()
	}
	st := e.State()
	if st.StabilityCount != 0 || st.Phase != PhaseIdle || st.CardDetected {
		t.Fatalf("state=%+v", st)
	}
	if len(rec.all()) != 0 {
		t.Fatal("unexpected capture")
	}
}

func TestEngine_AutoOffResetsImmediately(t *testing.T) {
	e, rec := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), nil)
	for i := 0; i < 16; i++ {
		e.cycle()
	}
	if st := e.State(); st.Progress != 75 || !st.CardDetected {
		t.Fatalf("state=%+v", st)
	}
	if err := e.SetAutoMode(false); err != nil {
		t.Fatalf("set auto: %v", err)
	}
	drain(e)
	st := e.State()
	if st.Progress != 0 || st.CardDetected || st.StabilityCount != 0 || st.AutoMode {
		t.Fatalf("state after auto off: %+v", st)
	}
	for i := 0; i < 30; i++ {
		e.cycle()
	}
	if len(rec.all()) != 0 || e.State().StabilityCount != 0 {
		t.Fatal("analysis ran with auto mode off")
	}
	if e.AutoMode() {
		t.Fatal("AutoMode reports enabled")
	}
}

func TestEngine_ManualCaptureGuard(t *testing.T) {
	e, rec := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), func(c *config.Config) {
		c.AutoMode = false
		c.Side = "back"
		c.CardID = "card-7"
	})
	reply := make(chan error, 1)
	e.handle(evtCapture{reply: reply})
	if err := <-reply; err != nil {
		t.Fatalf("manual capture: %v", err)
	}
	// delivery is acknowledged through the event queue; until then it is in flight.
	e.handle(evtCapture{reply: reply})
	if err := <-reply; !errors.Is(err, ErrCaptureInFlight) {
		t.Fatalf("re-entrant capture err=%v", err)
	}
	drain(e)
	if e.State().Phase != PhaseIdle {
		t.Fatalf("phase=%v", e.State().Phase)
	}
	events := rec.all()
	if len(events) != 1 || !events[0].Manual || events[0].Side != SideBack || events[0].CardID != "card-7" {
		t.Fatalf("events=%+v", events)
	}
	if s := e.Stats(); s.ManualCaptures != 1 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestEngine_SkipsWhenSourceNotReady(t *testing.T) {
	src := capture.NewStaticSource(nil)
	e, rec := newTestEngine(t, src, nil)
	for i := 0; i < 25; i++ {
		e.cycle()
	}
	if s := e.Stats(); s.Cycles != 0 || s.Skipped != 25 {
		t.Fatalf("stats=%+v", s)
	}
	reply := make(chan error, 1)
	e.handle(evtCapture{reply: reply})
	if err := <-reply; !errors.Is(err, capture.ErrSourceNotReady) {
		t.Fatalf("manual capture err=%v", err)
	}
	if e.State().Phase != PhaseIdle || len(rec.all()) != 0 {
		t.Fatalf("state=%+v", e.State())
	}
}

func TestEngine_SideSwitchAndViewport(t *testing.T) {
	e, rec := newTestEngine(t, capture.NewStaticSource(blockFrame(1280, 800)), nil)
	for i := 0; i < 5; i++ {
		e.cycle()
	}
	if err := e.SetSide(SideBack); err != nil {
		t.Fatal(err)
	}
	if err := e.SetViewport(1280, 800); err != nil {
		t.Fatal(err)
	}
	if err := e.SetViewport(0, 10); err != nil {
		t.Fatal(err)
	}
	var published []DetectionState
	e.AddStateListener(func(st DetectionState) { published = append(published, st) })
	drain(e)
	if st := e.State(); st.Side != SideBack || st.StabilityCount != 0 {
		t.Fatalf("state after side switch: %+v", st)
	}
	// the rejected 0x10 viewport publishes nothing; the accepted one is visible.
	if st := e.State(); st.DisplayWidth != 1280 || st.DisplayHeight != 800 {
		t.Fatalf("viewport in state: %dx%d", st.DisplayWidth, st.DisplayHeight)
	}
	if len(published) != 2 || published[1].DisplayWidth != 1280 {
		t.Fatalf("published=%+v", published)
	}
	reply := make(chan error, 1)
	e.handle(evtCapture{reply: reply})
	if err := <-reply; err != nil {
		t.Fatal(err)
	}
	ev := rec.all()[0]
	if ev.Side != SideBack {
		t.Fatalf("side=%v", ev.Side)
	}
	// 1280x800 shown at 1280x800: scale 1, guide centered.
	if ev.Crop != (capture.CropRegion{X: 465, Y: 290, Width: 350, Height: 220}) {
		t.Fatalf("crop=%+v", ev.Crop)
	}
}

func TestEngine_ListenerPanicStillFinishes(t *testing.T) {
	e, _ := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), nil)
	e.AddCaptureListener(func(CaptureEvent) { panic("boom") })
	reply := make(chan error, 1)
	e.handle(evtCapture{reply: reply})
	if err := <-reply; err != nil {
		t.Fatal(err)
	}
	drain(e)
	if e.State().Phase != PhaseIdle {
		t.Fatalf("phase=%v", e.State().Phase)
	}
}

func TestEngine_RunStopNoTicksAfterTeardown(t *testing.T) {
	e, _ := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), func(c *config.Config) { c.IntervalMs = 1 })
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().Cycles < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	e.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	after := e.Stats().Cycles
	if after < 3 {
		t.Fatalf("loop did not cycle: %d", after)
	}
	time.Sleep(20 * time.Millisecond)
	if got := e.Stats().Cycles; got != after {
		t.Fatalf("cycles after stop: %d -> %d", after, got)
	}
	if err := e.SetAutoMode(false); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("control after stop err=%v", err)
	}
	if err := e.CaptureNow(context.Background()); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("capture after stop err=%v", err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("rerun err=%v", err)
	}
}

func TestEngine_CaptureNowThroughLoop(t *testing.T) {
	e, rec := newTestEngine(t, capture.NewStaticSource(blockFrame(640, 400)), func(c *config.Config) { c.AutoMode = false })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	if err := e.CaptureNow(ctx); err != nil {
		t.Fatalf("capture now: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.State().Phase != PhaseIdle && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.all()) != 1 {
		t.Fatalf("captures=%d", len(rec.all()))
	}
	select {
	case <-e.Done():
	default:
		t.Fatal("cancel did not stop the engine")
	}
}
