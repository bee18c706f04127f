package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soocke/card-scan-go/app"
	"github.com/soocke/card-scan-go/config"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Deferred cleanups run before main exits.
func run() int {
	cfgPath := flag.String("config", "cardscan.yaml", "path to JSON or YAML config file")
	envFile := flag.String("env", ".env", "dotenv file applied before the environment")
	headless := flag.Bool("headless", false, "run without a window")
	imagePath := flag.String("image", "", "serve a still image instead of grabbing the screen")
	side := flag.String("side", "", "initial side: front or back")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime stats")
	httpAddr := flag.String("http", "", "HTTP/WebSocket listen address (overrides config)")
	flag.Parse()

	// Base config from file, then environment, then flags.
	cfg, err := config.Load(*cfgPath)
	bootLogger, _ := NewLogger(slog.LevelInfo, "")
	if err != nil {
		bootLogger.Error("config load failed", "path", *cfgPath, "error", err)
		return 1
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		bootLogger.Error("config env failed", "error", err)
		return 1
	}
	if *side != "" {
		cfg.Side = *side
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Error("invalid config", "error", err)
		return 1
	}

	// Set up logger
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger, closeLog := NewLogger(level, cfg.LogFile)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.BuildContainer(ctx, cfg, logger, *cfgPath, app.BuildOptions{ImagePath: *imagePath})
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	if *headless {
		err = app.RunHeadless(ctx, c)
	} else {
		err = app.NewApp("Card Scan", 900, 720, c).Start(ctx)
	}
	if err != nil {
		logger.Error("shutdown error", "error", err)
		return 1
	}
	return 0
}
