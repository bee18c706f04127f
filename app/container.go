package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/card-scan-go/config"
	"github.com/soocke/card-scan-go/debug"
	"github.com/soocke/card-scan-go/domain/capture"
	"github.com/soocke/card-scan-go/domain/scan"
	"github.com/soocke/card-scan-go/server"
	"github.com/soocke/card-scan-go/store"
	"github.com/soocke/card-scan-go/ui/model"
	"github.com/soocke/card-scan-go/ui/presenter"
	"github.com/soocke/card-scan-go/ui/view"
)

const debugLogInterval = 5 * time.Second

// BuildOptions selects the frame source.
type BuildOptions struct {
	// ImagePath serves a still image instead of grabbing the screen.
	ImagePath string
}

// AppContainer assembles the frame source, engine, persistence, HTTP surface,
// models, presenters and the root view.
type AppContainer struct {
	Config  *config.Config
	CfgPath string
	Logger  *slog.Logger

	Source capture.FrameSource
	Screen *capture.ScreenSource // nil when serving a still image
	Engine *scan.Engine
	DB     *store.DB
	Sink   *store.Sink
	Server *server.Server

	Scan     *model.ScanModel
	Session  *model.SessionModel
	Guide    *model.GuideModel
	RootView *view.RootView
	UI       view.UI

	// Presenters
	ScanPresenter    *presenter.ScanPresenter
	StatePresenter   *presenter.StatePresenter
	PreviewPresenter *presenter.PreviewPresenter
	SessionPresenter *presenter.SessionPresenter

	wg sync.WaitGroup
}

// BuildContainer constructs all components. Side effects are limited to
// opening the database and loading the still image, if any.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, cfgPath string, opts BuildOptions) (*AppContainer, error) {
	c := &AppContainer{Config: cfg, CfgPath: cfgPath, Logger: logger}

	if opts.ImagePath != "" {
		img, err := imaging.Open(opts.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("app: load image: %w", err)
		}
		c.Source = capture.NewStaticSource(img)
	} else {
		region := image.Rect(cfg.SourceX, cfg.SourceY, cfg.SourceX+cfg.SourceW, cfg.SourceY+cfg.SourceH)
		c.Screen = capture.NewScreenSource(logger.With("component", "capture"), region, cfg.Interval()/2)
		c.Source = c.Screen
	}

	eng, err := scan.NewEngine(logger.With("component", "engine"), cfg, c.Source)
	if err != nil {
		return nil, err
	}
	c.Engine = eng

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath, logger.With("component", "store"))
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		c.DB = db
		c.Sink = store.NewSink(logger.With("component", "sink"), db, store.NewDedupeGuard(cfg.DedupeDistance), cfg.JPEGQuality)
		eng.AddCaptureListener(c.Sink.Handle)
	}

	if cfg.HTTPAddr != "" {
		var captures server.CaptureStore
		if c.DB != nil {
			captures = c.DB
		}
		c.Server = server.New(logger.With("component", "server"), cfg, eng, captures)
		if c.Sink != nil {
			c.Sink.AddSavedListener(func(rec *store.CaptureRecord) {
				c.Server.NotifyCapture(server.CaptureFromRecord(rec))
			})
		} else {
			eng.AddCaptureListener(func(ev scan.CaptureEvent) {
				c.Server.NotifyCapture(server.CaptureFromEvent(ev))
			})
		}
	}

	// Models and presenters. The view is built later on the Tk thread; its
	// methods are no-ops until then.
	c.Scan = &model.ScanModel{}
	st := eng.State()
	c.Scan.SetAutoMode(st.AutoMode)
	c.Scan.SetSide(st.Side)
	c.Scan.SetViewport(st.DisplayWidth, st.DisplayHeight)
	c.Session = model.NewSessionModel()
	c.Guide = model.NewGuideModel()
	c.RootView = view.NewRootView(cfg, cfgPath, logger)
	c.UI = c.RootView
	c.ScanPresenter = presenter.NewScanPresenter(c.Scan, eng, c.UI, logger)
	c.StatePresenter = presenter.NewStatePresenter(c.Scan, c.UI)
	c.PreviewPresenter = presenter.NewPreviewPresenter(c.Source, c.Scan,
		capture.GuideRect{Width: cfg.GuideWidth, Height: cfg.GuideHeight},
		c.Guide, c.Session, c.UI)
	if c.Sink != nil {
		// count what was persisted, not what fired.
		c.PreviewPresenter.CountSaved = true
		c.Sink.AddSavedListener(func(*store.CaptureRecord) { c.PreviewPresenter.OnSaved() })
	}
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Scan, c.UI)
	eng.AddStateListener(c.StatePresenter.OnState)
	eng.AddCaptureListener(c.PreviewPresenter.OnCapture)
	return c, nil
}

// Start launches the frame source, the engine, the HTTP server and, in debug
// mode, the runtime loggers. They run until ctx is cancelled.
func (c *AppContainer) Start(ctx context.Context) {
	if c.Screen != nil {
		c.goRun(func() { c.Screen.Run(ctx) })
	}
	c.goRun(func() {
		if err := c.Engine.Run(ctx); err != nil {
			c.Logger.Error("engine exited", "error", err)
		}
	})
	if c.Server != nil {
		c.goRun(func() {
			if err := c.Server.ListenAndServe(ctx, c.Config.HTTPAddr); err != nil {
				c.Logger.Error("http server exited", "error", err)
			}
		})
	}
	if c.Config.Debug {
		debug.StartGoroutineLogger(ctx, debugLogInterval, c.Logger)
		debug.StartMemLogger(ctx, debugLogInterval, c.Logger, c.statsAttrs)
	}
}

func (c *AppContainer) goRun(f func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f()
	}()
}

func (c *AppContainer) statsAttrs() []slog.Attr {
	es := c.Engine.Stats()
	attrs := []slog.Attr{
		slog.Uint64("cycles", es.Cycles),
		slog.Uint64("skipped", es.Skipped),
		slog.Uint64("captures", es.Captures),
		slog.Duration("avg_cycle", es.AvgCycle),
	}
	if c.Sink != nil {
		saved, dropped, failed := c.Sink.Counts()
		attrs = append(attrs, slog.Uint64("saved", saved), slog.Uint64("dropped", dropped), slog.Uint64("save_failed", failed))
	}
	return attrs
}

// Close stops the engine, waits for the background goroutines started by
// Start and closes the database. ctx must already be cancelled or the
// server keeps running.
func (c *AppContainer) Close() error {
	c.Engine.Stop()
	c.wg.Wait()
	var err error
	if c.DB != nil {
		err = errors.Join(err, c.DB.Close())
	}
	return err
}
