package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/card-scan-go/ui/presenter"
	"github.com/soocke/card-scan-go/ui/theme"
	"github.com/soocke/card-scan-go/ui/view"
)

const (
	tick = 100 * time.Millisecond
)

// app is the Tk front end over an AppContainer.
type app struct {
	c       *AppContainer
	logger  *slog.Logger
	loop    *presenter.Loop
	afterID string
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewApp(title string, width, height int, c *AppContainer) *app {
	a := &app{c: c, logger: c.Logger}
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the window, starts the container's services and blocks in the
// Tk event loop until the window is closed.
func (a *app) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	theme.InitStyles()
	c := a.c
	c.RootView.Build(view.Callbacks{
		ToggleAuto: c.ScanPresenter.Toggle,
		CaptureNow: c.ScanPresenter.CaptureNow,
		SwitchSide: c.ScanPresenter.SwitchSide,
		SetCardID:  c.ScanPresenter.SetCardID,
		ToggleDark: func() { theme.ToggleDark() },
		Exit:       a.exitHandler,
	})
	st := c.Engine.State()
	c.UI.SetAutoLabel(st.AutoMode)
	c.UI.SetSideLabel(st.Side.String())

	c.Start(a.ctx)
	a.loop = presenter.NewLoop(c.StatePresenter, c.PreviewPresenter, c.SessionPresenter, a.scheduleUpdate)
	a.scheduleUpdate()

	App.Wait()
	a.cancel()
	return c.Close()
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
		a.afterID = ""
	}
	if a.cancel != nil {
		a.cancel()
	}
	Destroy(App)
}

// scheduleUpdate queues the next loop tick on Tk's event loop thread. The
// window closes on the first tick after the context is cancelled.
func (a *app) scheduleUpdate() {
	a.afterID = TclAfter(tick, func() {
		if a.ctx.Err() != nil {
			a.exitHandler()
			return
		}
		defer func() {
			if r := recover(); r != nil {
				if a.logger != nil {
					a.logger.Error("ui tick panic", "panic", r)
				}
				a.scheduleUpdate()
			}
		}()
		a.loop.Tick()
	})
}

// RunHeadless runs the container without a window until ctx is cancelled.
func RunHeadless(ctx context.Context, c *AppContainer) error {
	c.Start(ctx)
	c.Logger.Info("running headless", "http", c.Config.HTTPAddr, "db", c.Config.DBPath)
	<-ctx.Done()
	return c.Close()
}
