// Package app provides the top-level application lifecycle management for the
// polyboard backend. It wires together the sources, merger, stores, refresh
// scheduler, and HTTP server, and starts the goroutines for the configured
// operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/awyc/polyboard/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, selects the operating mode, and blocks until
// the context is cancelled or the mode completes.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup := Wire(a.cfg, a.logger)
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "once":
		return a.onceMode(ctx, deps)
	case "serve":
		return a.serveMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// serveMode runs the HTTP server, the WebSocket hub, and the background
// refresh scheduler until the context is cancelled.
func (a *App) serveMode(ctx context.Context, deps *Deps) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.Duration("refresh_interval", a.cfg.Refresh.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Refresher.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("refresher: %w", err)
	})

	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	g.Go(func() error {
		return deps.Server.Start()
	})

	// Shut the HTTP server down when the context is cancelled so Start
	// returns.
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// onceMode runs a single refresh cycle and logs a summary, for smoke-testing
// the pipeline without serving.
func (a *App) onceMode(ctx context.Context, deps *Deps) error {
	a.logger.InfoContext(ctx, "starting once mode")

	if err := deps.Refresher.RunOnce(ctx); err != nil {
		return fmt.Errorf("app: refresh cycle: %w", err)
	}

	snap := deps.Snapshots.Current()
	rewards := 0
	for i := range snap.Markets {
		if snap.Markets[i].HasRewards {
			rewards++
		}
	}
	a.logger.Info("refresh complete",
		slog.Uint64("version", snap.Version),
		slog.Int("markets", len(snap.Markets)),
		slog.Int("with_rewards", rewards),
	)
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
