package presenter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soocke/card-scan-go/domain/scan"
)

const manualCaptureTimeout = 2 * time.Second

// ScanModel provides auto mode and side access.
type ScanModel interface {
	AutoMode() bool
	SetAutoMode(bool)
	Side() scan.Side
	SetSide(scan.Side)
}

// ScanView updates UI elements affected by the scan controls.
type ScanView interface {
	SetAutoLabel(on bool)
	SetSideLabel(side string)
	SetStatus(text string)
	PreviewReset()
}

// ScanPresenter owns the presentation logic of the control buttons: auto
// mode, manual capture, side and card selection.
type ScanPresenter struct {
	model  ScanModel
	ctrl   scan.SessionControl
	view   ScanView
	logger *slog.Logger
}

func NewScanPresenter(model ScanModel, ctrl scan.SessionControl, view ScanView, logger *slog.Logger) *ScanPresenter {
	return &ScanPresenter{model: model, ctrl: ctrl, view: view, logger: logger}
}

func (p *ScanPresenter) ready() bool {
	return p != nil && p.model != nil && p.ctrl != nil && p.view != nil
}

// Enable switches auto mode on. Idempotent.
func (p *ScanPresenter) Enable() { p.setAuto(true) }

// Disable switches auto mode off and clears the live preview. Idempotent.
func (p *ScanPresenter) Disable() { p.setAuto(false) }

// Toggle flips auto mode delegating to Enable/Disable.
func (p *ScanPresenter) Toggle() {
	if !p.ready() {
		return
	}
	if p.model.AutoMode() {
		p.Disable()
		return
	}
	p.Enable()
}

func (p *ScanPresenter) setAuto(on bool) {
	if !p.ready() || p.model.AutoMode() == on {
		return
	}
	if err := p.ctrl.SetAutoMode(on); err != nil {
		p.fail("auto mode", err)
		return
	}
	p.model.SetAutoMode(on)
	p.view.SetAutoLabel(on)
	if !on {
		p.view.PreviewReset()
	}
}

// SwitchSide flips between front and back.
func (p *ScanPresenter) SwitchSide() {
	if !p.ready() {
		return
	}
	next := scan.SideBack
	if p.model.Side() == scan.SideBack {
		next = scan.SideFront
	}
	if err := p.ctrl.SetSide(next); err != nil {
		p.fail("side", err)
		return
	}
	p.model.SetSide(next)
	p.view.SetSideLabel(next.String())
}

// SetCardID tags subsequent captures with id.
func (p *ScanPresenter) SetCardID(id string) {
	if !p.ready() {
		return
	}
	if err := p.ctrl.SetCardID(id); err != nil {
		p.fail("card id", err)
		return
	}
	if id == "" {
		p.view.SetStatus("Card: <none>")
		return
	}
	p.view.SetStatus("Card: " + id)
}

// CaptureNow requests a manual capture. A capture already in flight is
// reported in the status line, not as an error.
func (p *ScanPresenter) CaptureNow() {
	if !p.ready() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), manualCaptureTimeout)
	defer cancel()
	err := p.ctrl.CaptureNow(ctx)
	switch {
	case err == nil:
		p.view.SetStatus("Capturing...")
	case errors.Is(err, scan.ErrCaptureInFlight):
		p.view.SetStatus("Capture already in progress")
	default:
		p.fail("capture", err)
	}
}

func (p *ScanPresenter) fail(action string, err error) {
	if p.logger != nil {
		p.logger.Error("scan control failed", "action", action, "error", err)
	}
	p.view.SetStatus("Error: " + err.Error())
}
