package presenter

import (
	"image"
	"testing"
	"time"

	"github.com/soocke/card-scan-go/domain/capture"
	"github.com/soocke/card-scan-go/domain/scan"
	"github.com/soocke/card-scan-go/ui/model"
)

type mockPreviewView struct {
	live, captures []image.Image
}

func (v *mockPreviewView) UpdateLive(img image.Image)    { v.live = append(v.live, img) }
func (v *mockPreviewView) UpdateCapture(img image.Image) { v.captures = append(v.captures, img) }

func newPreviewFixture() (*PreviewPresenter, *capture.StaticSource, *mockPreviewView, *model.GuideModel, *model.SessionModel) {
	src := capture.NewStaticSource(nil)
	view := &mockPreviewView{}
	guide := model.NewGuideModel()
	sess := model.NewSessionModel()
	vp := &model.ScanModel{}
	vp.SetViewport(640, 400)
	p := NewPreviewPresenter(src, vp, capture.GuideRect{Width: 350, Height: 220}, guide, sess, view)
	return p, src, view, guide, sess
}

func TestPreviewPresenter_LiveThrottled(t *testing.T) {
	p, src, view, guide, _ := newPreviewFixture()
	now := time.Unix(100, 0)

	p.Tick(now)
	if len(view.live) != 0 {
		t.Fatal("live preview without a ready source")
	}

	src.Set(image.NewRGBA(image.Rect(0, 0, 640, 400)))
	p.Tick(now)
	if len(view.live) != 1 {
		t.Fatalf("live updates=%d want 1", len(view.live))
	}
	if b := view.live[0].Bounds(); b.Dx() > maxLiveW || b.Dy() > maxLiveH {
		t.Fatalf("live preview not scaled: %v", b)
	}
	want := capture.CropRegion{X: 145, Y: 90, Width: 350, Height: 220}
	if guide.Region() != want {
		t.Fatalf("guide region=%+v want %+v", guide.Region(), want)
	}

	// within the throttle window nothing is redrawn.
	src.Set(image.NewRGBA(image.Rect(0, 0, 640, 400)))
	p.Tick(now.Add(50 * time.Millisecond))
	if len(view.live) != 1 {
		t.Fatalf("throttle ignored: %d", len(view.live))
	}
	p.Tick(now.Add(p.Every))
	if len(view.live) != 2 {
		t.Fatalf("live updates=%d want 2", len(view.live))
	}
}

func TestPreviewPresenter_ShowsNewestCapture(t *testing.T) {
	p, _, view, _, sess := newPreviewFixture()
	sess.OnTick(true, time.Unix(0, 0))
	p.OnCapture(scan.CaptureEvent{ID: "a", Image: image.NewNRGBA(image.Rect(0, 0, 10, 10))})
	p.OnCapture(scan.CaptureEvent{ID: "b", Image: image.NewNRGBA(image.Rect(0, 0, 700, 440))})
	p.Tick(time.Unix(1, 0))
	if len(view.captures) != 1 {
		t.Fatalf("capture updates=%d want 1", len(view.captures))
	}
	if b := view.captures[0].Bounds(); b.Dx() != 358 || b.Dy() != 225 {
		t.Fatalf("capture preview bounds=%v", b)
	}
	if s, tot := sess.Captures(); s != 1 || tot != 1 {
		t.Fatalf("captures counted session=%d total=%d", s, tot)
	}
	p.Tick(time.Unix(2, 0))
	if len(view.captures) != 1 {
		t.Fatal("capture shown twice")
	}
}

func TestPreviewPresenter_FollowsViewport(t *testing.T) {
	src := capture.NewStaticSource(image.NewRGBA(image.Rect(0, 0, 640, 400)))
	view := &mockPreviewView{}
	guide := model.NewGuideModel()
	scanModel := &model.ScanModel{}
	state := NewStatePresenter(scanModel, &mockStateView{})
	p := NewPreviewPresenter(src, scanModel, capture.GuideRect{Width: 350, Height: 220}, guide, nil, view)
	now := time.Unix(100, 0)

	state.OnState(scan.DetectionState{DisplayWidth: 640, DisplayHeight: 400})
	state.Tick(now)
	p.Tick(now)
	if want := (capture.CropRegion{X: 145, Y: 90, Width: 350, Height: 220}); guide.Region() != want {
		t.Fatalf("guide region=%+v want %+v", guide.Region(), want)
	}

	// same frame, doubled viewport: the outline is redrawn at half the size.
	later := now.Add(p.Every)
	state.OnState(scan.DetectionState{DisplayWidth: 1280, DisplayHeight: 800})
	state.Tick(later)
	p.Tick(later)
	if len(view.live) != 2 {
		t.Fatalf("live updates=%d want 2", len(view.live))
	}
	if want := (capture.CropRegion{X: 232.5, Y: 145, Width: 175, Height: 110}); guide.Region() != want {
		t.Fatalf("guide region after resize=%+v want %+v", guide.Region(), want)
	}
}

func TestPreviewPresenter_NilCounterStillShows(t *testing.T) {
	src := capture.NewStaticSource(nil)
	view := &mockPreviewView{}
	p := NewPreviewPresenter(src, &model.ScanModel{}, capture.GuideRect{Width: 350, Height: 220}, nil, nil, view)
	p.OnCapture(scan.CaptureEvent{Image: image.NewNRGBA(image.Rect(0, 0, 10, 10))})
	p.Tick(time.Unix(1, 0))
	if len(view.captures) != 1 {
		t.Fatalf("capture updates=%d want 1", len(view.captures))
	}
}

func TestPreviewPresenter_CountSaved(t *testing.T) {
	p, _, view, _, sess := newPreviewFixture()
	p.CountSaved = true
	// a capture dropped by persistence is shown but not counted.
	p.OnCapture(scan.CaptureEvent{ID: "dup", Image: image.NewNRGBA(image.Rect(0, 0, 10, 10))})
	p.Tick(time.Unix(1, 0))
	if _, tot := sess.Captures(); tot != 0 || len(view.captures) != 1 {
		t.Fatalf("total=%d shown=%d", tot, len(view.captures))
	}
	p.OnSaved()
	p.OnSaved()
	p.Tick(time.Unix(2, 0))
	if _, tot := sess.Captures(); tot != 2 {
		t.Fatalf("total=%d want 2", tot)
	}
	p.Tick(time.Unix(3, 0))
	if _, tot := sess.Captures(); tot != 2 {
		t.Fatalf("saved captures counted twice: %d", tot)
	}
}

type mockSessionView struct {
	session, total      time.Duration
	sessCount, totCount int
}

func (v *mockSessionView) SetSession(s, t time.Duration) { v.session, v.total = s, t }
func (v *mockSessionView) SetCaptures(s, t int)          { v.sessCount, v.totCount = s, t }

func TestLoop_TicksPresenters(t *testing.T) {
	scanModel := &model.ScanModel{}
	stateView := &mockStateView{}
	state := NewStatePresenter(scanModel, stateView)
	p, _, _, _, sess := newPreviewFixture()
	sessView := &mockSessionView{}
	session := NewSessionPresenter(sess, scanModel, sessView)
	scheduled := 0
	loop := NewLoop(state, p, session, func() { scheduled++ })

	state.OnState(scan.DetectionState{AutoMode: true})
	p.OnCapture(scan.CaptureEvent{Image: image.NewNRGBA(image.Rect(0, 0, 4, 4))})
	loop.Tick()
	if scheduled != 1 || len(stateView.labels) != 1 {
		t.Fatalf("scheduled=%d labels=%v", scheduled, stateView.labels)
	}
	// the capture is counted before the session tick opens the session, so it
	// only shows up in the total.
	if sessView.totCount != 1 || sessView.sessCount != 0 {
		t.Fatalf("session counts session=%d total=%d", sessView.sessCount, sessView.totCount)
	}

	var nilLoop *Loop
	nilLoop.Tick()
	(&Loop{}).Tick()
}
