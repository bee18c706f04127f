package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/card-scan-go/config"
	"github.com/soocke/card-scan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	Settings    SettingsPanel
	CapturePrev CapturePreview

	// Widgets
	StateLabel  *TLabelWidget
	AutoLabel   *TLabelWidget
	SideLabel   *LabelWidget
	StatusLabel *LabelWidget
	Progress    *TProgressbarWidget
}

// Callbacks are the user actions the root view forwards.
type Callbacks struct {
	ToggleAuto func()
	CaptureNow func()
	SwitchSide func()
	SetCardID  func(id string)
	ToggleDark func()
	Exit       func()
}

// UI abstracts the subset of view operations needed by presenters.
type UI interface {
	SetStateLabel(text string)
	SetProgress(percent float64)
	SetAutoLabel(on bool)
	SetSideLabel(side string)
	SetStatus(text string)
	UpdateLive(img image.Image)
	UpdateCapture(img image.Image)
	PreviewReset()
	SetSession(session, total time.Duration)
	SetCaptures(session, total int)
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. Callbacks may be nil.
func (rv *RootView) Build(cb Callbacks) {
	if rv == nil {
		return
	}
	call := func(f func()) func() {
		return func() {
			if f != nil {
				f()
			}
		}
	}
	// Row 0: session stats, state label, buttons frame
	rv.Session = NewSessionStats(nil, 0, 0)
	rv.StateLabel = TLabel(Txt("State: <none>"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.Progress = TProgressbar(Orient("horizontal"), Mode("determinate"), Maximum(100), Value(0), Style(theme.StyleProgress))
	Grid(rv.Progress, Row(1), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.AutoLabel = TLabel(Txt("AUTO OFF"), Style(theme.StyleAutoOffLabel))
	Grid(rv.AutoLabel, Row(2), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.3m"))
	rv.SideLabel = Label(Txt("Side: front"), Borderwidth(1), Relief("ridge"))
	Grid(rv.SideLabel, Row(2), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.StatusLabel = Label(Txt(""), Anchor("w"))
	Grid(rv.StatusLabel, Row(2), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	buttons := []*TButtonWidget{
		TButton(Txt("Toggle Auto"), Style(theme.StylePrimaryButton), Command(call(cb.ToggleAuto))),
		TButton(Txt("Capture"), Style(theme.StylePrimaryButton), Command(call(cb.CaptureNow))),
		TButton(Txt("Switch Side"), Command(call(cb.SwitchSide))),
		TButton(Txt("Dark Mode"), Command(call(cb.ToggleDark))),
		TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(call(cb.Exit))),
	}
	for i, b := range buttons {
		Grid(b, In(btnFrame), Row(i), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	}

	// Settings rows
	rv.Settings = NewSettingsPanel(rv.cfg, rv.cfgPath, rv.logger)
	endRow := rv.Settings.Build(3, cb.SetCardID)

	// Capture preview placement
	rv.CapturePrev = NewCapturePreview(endRow)
}

// SetStateLabel updates the state label text.
func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetProgress moves the stability progress bar.
func (rv *RootView) SetProgress(percent float64) {
	if rv != nil && rv.Progress != nil {
		rv.Progress.Configure(Value(percent))
	}
}

// SetAutoLabel shows whether auto capture is on. Settings are locked while it is.
func (rv *RootView) SetAutoLabel(on bool) {
	if rv == nil || rv.AutoLabel == nil {
		return
	}
	if on {
		rv.AutoLabel.Configure(Txt("AUTO ON"), Style(theme.StyleAutoOnLabel))
	} else {
		rv.AutoLabel.Configure(Txt("AUTO OFF"), Style(theme.StyleAutoOffLabel))
	}
	if rv.Settings != nil {
		rv.Settings.SetEditable(!on)
	}
}

// SetSideLabel updates the side indicator.
func (rv *RootView) SetSideLabel(side string) {
	if rv != nil && rv.SideLabel != nil {
		rv.SideLabel.Configure(Txt("Side: " + side))
	}
}

// SetStatus updates the status line.
func (rv *RootView) SetStatus(text string) {
	if rv != nil && rv.StatusLabel != nil {
		rv.StatusLabel.Configure(Txt(text))
	}
}

// UpdateLive proxies to the capture preview view.
func (rv *RootView) UpdateLive(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateLive(img)
	}
}

// UpdateCapture proxies to the capture preview view.
func (rv *RootView) UpdateCapture(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateCapture(img)
	}
}

// PreviewReset clears the live preview.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.Reset()
	}
}

// SetSession updates both session and total scan durations.
func (rv *RootView) SetSession(session, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
}

// SetCaptures updates the capture counters.
func (rv *RootView) SetCaptures(session, total int) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetCaptures(session, total)
	}
}
