// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/buildcfg/internal/watch"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (arguments watcher, reload
// wiring) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	watcher      *watch.Watcher
	reload       func(context.Context) error
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. Watcher and reload may be nil when
// no arguments file is configured.
func NewApp(logger zerolog.Logger, manager Manager, watcher *watch.Watcher, reload func(context.Context) error) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		watcher:      watcher,
		reload:       reload,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Arguments watcher is best-effort: startup should not fail if the watch
	// cannot be established.
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "watch.start_failed").Msg("failed to start arguments watcher")
		}
	}

	// SIGHUP trigger for a manual re-evaluation.
	if a.reload != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "daemon.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, re-running evaluation")

					if err := a.reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "daemon.reload_failed").
							Msg("re-evaluation failed, last good snapshot stays in place")
					}
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
