package presenter

import (
	"image"
	"sync"
	"time"

	"github.com/soocke/card-scan-go/domain/capture"
	"github.com/soocke/card-scan-go/domain/scan"
	"github.com/soocke/card-scan-go/ui/images"
)

const (
	maxLiveW         = 400
	maxLiveH         = 225
	guideThickness   = 2
	defaultLiveEvery = 200 * time.Millisecond
)

// PreviewView shows the live source with the guide outline and the most recent capture.
type PreviewView interface {
	UpdateLive(img image.Image)
	UpdateCapture(img image.Image)
}

// GuideStore keeps the mapped guide region for other consumers.
type GuideStore interface {
	SetRegion(capture.CropRegion)
}

// CaptureCounter is told about every counted capture.
type CaptureCounter interface {
	OnCapture()
}

// ViewportSource reports the display size the guide is laid out on.
type ViewportSource interface {
	Viewport() image.Point
}

// PreviewPresenter renders the live preview on Tick, throttled to one frame
// per interval, and shows captures queued by OnCapture.
type PreviewPresenter struct {
	src      capture.FrameSource
	viewport ViewportSource
	guide    capture.GuideRect
	store    GuideStore
	counter  CaptureCounter
	view     PreviewView

	Every time.Duration
	// CountSaved counts captures reported by OnSaved instead of every capture
	// shown, so captures dropped by persistence are not counted.
	CountSaved bool

	lastLive    time.Time
	lastSeq     uint64
	lastDisplay image.Point

	mu      sync.Mutex
	pending *scan.CaptureEvent
	saved   int
}

// NewPreviewPresenter builds a presenter for src. viewport is read on every
// live frame so the outline follows viewport changes. store and counter may
// be nil.
func NewPreviewPresenter(src capture.FrameSource, viewport ViewportSource, guide capture.GuideRect, store GuideStore, counter CaptureCounter, view PreviewView) *PreviewPresenter {
	return &PreviewPresenter{src: src, viewport: viewport, guide: guide, store: store, counter: counter, view: view, Every: defaultLiveEvery}
}

// OnCapture queues ev for display. Only the newest pending capture is kept.
// Safe to call from any goroutine.
func (p *PreviewPresenter) OnCapture(ev scan.CaptureEvent) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = &ev
	p.mu.Unlock()
}

// OnSaved records one persisted capture. Safe to call from any goroutine.
func (p *PreviewPresenter) OnSaved() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.saved++
	p.mu.Unlock()
}

// Tick flushes a pending capture and refreshes the live preview when due.
func (p *PreviewPresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	ev, saved := p.pending, p.saved
	p.pending, p.saved = nil, 0
	p.mu.Unlock()
	count := 0
	if p.CountSaved {
		count = saved
	}
	if ev != nil && ev.Image != nil {
		p.view.UpdateCapture(images.ScaleToFit(ev.Image, maxLiveW, maxLiveH))
		if !p.CountSaved {
			count = 1
		}
	}
	for ; p.counter != nil && count > 0; count-- {
		p.counter.OnCapture()
	}
	if now.Sub(p.lastLive) < p.Every {
		return
	}
	p.renderLive(now)
}

func (p *PreviewPresenter) renderLive(now time.Time) {
	if p.src == nil || p.viewport == nil || !p.src.Ready() {
		return
	}
	frame, err := p.src.Frame()
	if err != nil || frame.Image == nil {
		return
	}
	display := p.viewport.Viewport()
	if frame.Sequence != 0 && frame.Sequence == p.lastSeq && display == p.lastDisplay {
		return
	}
	p.lastLive, p.lastSeq, p.lastDisplay = now, frame.Sequence, display
	region := capture.MapGuide(capture.ViewportGeometry{
		SourceWidth:   frame.Width(),
		SourceHeight:  frame.Height(),
		DisplayWidth:  display.X,
		DisplayHeight: display.Y,
	}, p.guide)
	if p.store != nil {
		p.store.SetRegion(region)
	}
	p.view.UpdateLive(images.GuideOverlay(frame.Image, region.Rect(), maxLiveW, maxLiveH, guideThickness))
}
