package presenter

import (
	"fmt"
	"sync"
	"time"

	"github.com/soocke/card-scan-go/domain/scan"
)

// StateView shows the detection phase and stability progress.
type StateView interface {
	SetStateLabel(string)
	SetProgress(percent float64)
	SetAutoLabel(on bool)
	SetSideLabel(side string)
}

// StateModel is the scan model plus the viewport the guide is laid out on.
type StateModel interface {
	ScanModel
	SetViewport(w, h int)
}

// StatePresenter receives engine states and reflects the latest one in the
// view on Tick. OnState is safe to call from the engine goroutine.
type StatePresenter struct {
	model StateModel
	view  StateView

	mu      sync.Mutex
	pending scan.DetectionState
	dirty   bool

	latest scan.DetectionState
	shown  bool
}

func NewStatePresenter(model StateModel, view StateView) *StatePresenter {
	return &StatePresenter{model: model, view: view}
}

// OnState records st as the state to show on the next Tick. Only the newest
// state is kept.
func (p *StatePresenter) OnState(st scan.DetectionState) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending, p.dirty = st, true
	p.mu.Unlock()
}

// Tick takes the pending state, syncs the model with the engine's auto mode,
// side and viewport, and updates the view when the state changed.
func (p *StatePresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	last := p.pending
	p.dirty = false
	p.mu.Unlock()

	if p.shown && last == p.latest {
		return
	}
	prev, first := p.latest, !p.shown
	p.latest, p.shown = last, true

	if p.model != nil {
		p.model.SetAutoMode(last.AutoMode)
		p.model.SetSide(last.Side)
		p.model.SetViewport(last.DisplayWidth, last.DisplayHeight)
	}
	p.view.SetStateLabel(stateText(last))
	p.view.SetProgress(last.Progress)
	if first || last.AutoMode != prev.AutoMode {
		p.view.SetAutoLabel(last.AutoMode)
	}
	if first || last.Side != prev.Side {
		p.view.SetSideLabel(last.Side.String())
	}
}

func stateText(st scan.DetectionState) string {
	switch {
	case !st.AutoMode && st.Phase != scan.PhaseCapturing:
		return "State: manual"
	case st.Phase == scan.PhaseCapturing:
		return "State: capturing"
	case st.Phase == scan.PhaseAccumulating:
		return fmt.Sprintf("State: hold steady (%d)", st.StabilityCount)
	case !st.CardDetected:
		return "State: no card"
	}
	return "State: " + st.Phase.String()
}
