package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sriail/browser-ig/internal/api"
	"github.com/sriail/browser-ig/internal/config"
	"github.com/sriail/browser-ig/internal/display"
	"github.com/sriail/browser-ig/internal/engine"
	"github.com/sriail/browser-ig/internal/image"
	"github.com/sriail/browser-ig/internal/relay"
	"github.com/sriail/browser-ig/internal/session"
	"github.com/sriail/browser-ig/internal/store"
)

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfgPath := flag.String("config", "", "path to browservm.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	if cfg.APIKey == "" {
		logger.Warn("no API key configured — running in open access mode")
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	binary := engine.Locate(cfg.EngineBinary)
	if binary == "" {
		logger.Warn("no emulator binary found — all sessions will be simulated")
	} else {
		logger.Info("emulator binary", "path", binary)
	}

	slots := display.New(cfg.DisplaySlots)
	launcher := engine.NewLauncher(binary, time.Duration(cfg.SimBootDelayMs)*time.Millisecond, logger)
	images := image.NewProvider(cfg.ImageDir, cfg.Images)

	registry, err := session.NewRegistry(cfg, slots, launcher, images, st, logger)
	if err != nil {
		logger.Error("init registry", "error", err)
		os.Exit(1)
	}

	vnc := relay.NewHandler(registry, logger)
	srv := api.NewServer(cfg, registry, st, slots, vnc.ServeVNC, logger)

	httpServer := &http.Server{
		Addr:        cfg.Listen,
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: relay connections stay open for the whole
		// VNC session.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		registry.StopAll()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Listen)
	fmt.Fprintf(os.Stderr, "\n  browservm daemon ready at http://%s\n\n", cfg.Listen)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
