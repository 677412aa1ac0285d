// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package watch re-runs the evaluation pass when the arguments file changes
// on disk. A failing pass keeps the last good snapshot in place; only a
// clean pass replaces it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/metrics"
	"github.com/ManuGH/buildcfg/internal/target"
)

// DefaultDebounce collapses editor write bursts into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a re-evaluation whenever the watched file changes.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   func(context.Context) error
	logger   zerolog.Logger

	watcher *fsnotify.Watcher

	mu        sync.Mutex
	lastAt    time.Time
	lastError string
}

// New creates a watcher over path. reload runs after each debounced change;
// its error classifies the outcome but never stops the watch.
func New(path string, debounce time.Duration, reload func(context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		reload:   reload,
		logger:   log.WithComponent("watch"),
	}
}

// Start begins watching until ctx is cancelled. The parent directory is
// watched rather than the file itself: editors replace files by rename,
// which silently drops a watch on the old inode.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" || w.path == "." {
		return errors.New("no arguments file to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fsw

	w.logger.Info().
		Str("event", "watch.started").
		Str("path", w.path).
		Dur("debounce", w.debounce).
		Msg("watching arguments file")

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = w.watcher.Close()
	}()

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "watch.stopped").Msg("watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			// Write covers in-place edits, Create and Rename cover the
			// write-to-temp-then-rename editors.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			metrics.IncWatchEvent()
			w.logger.Debug().
				Str("event", "watch.file_changed").
				Str("op", event.Op.String()).
				Msg("arguments file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, func() { w.runReload(ctx) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Str("event", "watch.error").Msg("watcher error")
		}
	}
}

// runReload runs one reload and classifies the outcome. An invalid
// arguments file is expected during editing and is not an operational
// error; both failure kinds leave the previous snapshot untouched.
func (w *Watcher) runReload(ctx context.Context) {
	err := w.reload(ctx)

	w.mu.Lock()
	w.lastAt = time.Now()
	if err != nil {
		w.lastError = err.Error()
	} else {
		w.lastError = ""
	}
	w.mu.Unlock()

	switch {
	case err == nil:
		metrics.RecordWatchReload("success")
		w.logger.Info().Str("event", "watch.reload_success").Msg("re-evaluation completed")
	case errors.Is(err, target.ErrInvalidValue):
		metrics.RecordWatchReload("invalid")
		w.logger.Error().
			Err(err).
			Str("event", "watch.reload_invalid").
			Msg("arguments file is invalid; keeping last good snapshot")
	default:
		metrics.RecordWatchReload("error")
		w.logger.Error().
			Err(err).
			Str("event", "watch.reload_failed").
			Msg("re-evaluation failed; keeping last good snapshot")
	}
}

// Last returns when the most recent watch-triggered reload finished and its
// error, empty on success. The zero time means none has run yet.
func (w *Watcher) Last() (time.Time, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAt, w.lastError
}

// Stop closes the filesystem watcher; the loop drains and exits. Safe to
// call when Start was never called or failed.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}
