// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/buildcfg/internal/target"
)

func TestNew_DefaultDebounce(t *testing.T) {
	w := New("args.yaml", 0, nil)
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	w = New("args.yaml", 50*time.Millisecond, nil)
	if w.debounce != 50*time.Millisecond {
		t.Errorf("debounce = %v, want 50ms", w.debounce)
	}
}

func TestWatcher_StartEmptyPath(t *testing.T) {
	w := New("", 0, func(context.Context) error { return nil })
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected Start() to fail without a path")
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "args.yaml")
	w := New(path, 0, func(context.Context) error { return nil })
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected Start() to fail for a missing directory")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := New("args.yaml", 0, nil)
	// Must not panic when the watcher never ran.
	w.Stop()
}

func TestRunReload_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name      string
		reloadErr error
		wantError bool
	}{
		{"success clears error", nil, false},
		{"invalid value keeps error", fmt.Errorf("resolve: %w", &target.InvalidValueError{
			Field:   "target_environment",
			Value:   "frobnicator",
			Allowed: target.EnvironmentNames(),
		}), true},
		{"plain failure keeps error", errors.New("disk on fire"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New("args.yaml", 0, func(context.Context) error { return tt.reloadErr })

			before, _ := w.Last()
			if !before.IsZero() {
				t.Fatal("expected zero time before any reload")
			}

			w.runReload(context.Background())

			at, lastErr := w.Last()
			if at.IsZero() {
				t.Error("expected Last() time to be set after a reload")
			}
			if tt.wantError && lastErr == "" {
				t.Error("expected Last() to carry the reload error")
			}
			if !tt.wantError && lastErr != "" {
				t.Errorf("expected no error, got %q", lastErr)
			}
		})
	}
}

// TestRunReload_KeepsLastGood drives the reload the way the daemon wires it:
// the pass replaces the current snapshot only when it succeeds.
func TestRunReload_KeepsLastGood(t *testing.T) {
	var mu sync.Mutex
	current := "initial"
	next := "good"
	var fail error

	reload := func(context.Context) error {
		if fail != nil {
			return fail
		}
		mu.Lock()
		current = next
		mu.Unlock()
		return nil
	}

	w := New("args.yaml", 0, reload)

	w.runReload(context.Background())
	mu.Lock()
	got := current
	mu.Unlock()
	if got != "good" {
		t.Fatalf("snapshot = %q after clean pass, want good", got)
	}

	fail = &target.InvalidValueError{Field: "target_environment", Value: "bogus", Allowed: target.EnvironmentNames()}
	next = "never"
	w.runReload(context.Background())

	mu.Lock()
	got = current
	mu.Unlock()
	if got != "good" {
		t.Fatalf("snapshot = %q after failed pass, want the previous one", got)
	}
	if _, lastErr := w.Last(); lastErr == "" {
		t.Error("expected Last() to carry the failure")
	}
}

func TestWatcher_TriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.yaml")
	if err := os.WriteFile(path, []byte("target_cpu: x64\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 8)
	w := New(path, 20*time.Millisecond, func(context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("target_cpu: arm64\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload did not run after a file write")
	}
}

// TestWatcher_TriggersOnRename covers the write-to-temp-then-rename editors:
// the original inode disappears, so the watch sits on the directory.
func TestWatcher_TriggersOnRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.yaml")
	if err := os.WriteFile(path, []byte("target_cpu: x64\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 8)
	w := New(path, 20*time.Millisecond, func(context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, ".args.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("target_cpu: arm64\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload did not run after an atomic replace")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.yaml")
	if err := os.WriteFile(path, []byte("target_cpu: x64\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 8)
	w := New(path, 10*time.Millisecond, func(context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Fatal("reload ran for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
