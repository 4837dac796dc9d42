package process

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charleschow/squares-odds/internal/config"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

// Serve boots the odds service and blocks until SIGINT or SIGTERM.
func Serve() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting squares odds service")

	app, err := New(cfg)
	if err != nil {
		telemetry.Errorf("Startup: %v", err)
		os.Exit(1)
	}
	telemetry.Infof("Cache backend=%s  ttl=%s", cfg.CacheBackend, cfg.ModelTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Sweep(ctx)

	// ── HTTP server ────────────────────────────────────────────
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		telemetry.Infof("HTTP listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	telemetry.Infof("Received %v, shutting down", sig)

	telemetry.Infof("Closing  sessions=%d  viewers=%d", app.Sessions.Active(), app.Fanout.Viewers())
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		telemetry.Warnf("HTTP shutdown: %v", err)
	}
	app.Close()

	telemetry.Infof("Shutdown complete")
}
