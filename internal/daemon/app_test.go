// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/ManuGH/buildcfg/internal/log"
	"github.com/ManuGH/buildcfg/internal/watch"
	"go.uber.org/goleak"
)

// blockingManager satisfies Manager for app tests without opening sockets.
type blockingManager struct {
	startErr  error
	shutdowns atomic.Int32
}

func (m *blockingManager) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *blockingManager) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	return nil
}

func (m *blockingManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_RunMissingManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)

	err := app.Run(context.Background())
	if !errors.Is(err, ErrMissingManager) {
		t.Fatalf("Run() error = %v, want %v", err, ErrMissingManager)
	}
}

func TestApp_RunStartsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := &blockingManager{}
	app := NewApp(log.WithComponent("test"), mgr, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}

	if n := mgr.shutdowns.Load(); n != 0 {
		t.Errorf("Shutdown called %d times on clean stop, want 0", n)
	}
}

func TestApp_ManagerFailureTriggersShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := &blockingManager{startErr: errors.New("bind failed")}
	app := NewApp(log.WithComponent("test"), mgr, nil, nil)

	err := app.Run(context.Background())
	if err == nil || !errors.Is(err, mgr.startErr) {
		t.Fatalf("Run() error = %v, want %v", err, mgr.startErr)
	}
	if n := mgr.shutdowns.Load(); n != 1 {
		t.Errorf("Shutdown called %d times after start failure, want 1", n)
	}
}

func TestApp_ReloadSignal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Capture SIGHUP before the first Kill so the default action can never
	// terminate the test process while the app is still registering.
	safety := make(chan os.Signal, 1)
	signal.Notify(safety, syscall.SIGHUP)
	defer signal.Stop(safety)

	reloads := make(chan struct{}, 1)
	reload := func(context.Context) error {
		select {
		case reloads <- struct{}{}:
		default:
		}
		return nil
	}

	mgr := &blockingManager{}
	app := NewApp(log.WithComponent("test"), mgr, nil, reload)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	// Signal registration happens inside the errgroup goroutine, so keep
	// sending until one delivery is observed.
	deadline := time.After(3 * time.Second)
	delivered := false
	for !delivered {
		if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
			t.Fatalf("sending SIGHUP failed: %v", err)
		}
		select {
		case <-reloads:
			delivered = true
		case <-deadline:
			t.Fatal("reload was not triggered by SIGHUP")
		case <-time.After(100 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestApp_ToleratesWatcherStartFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Parent directory does not exist, so the watch cannot be established.
	missing := filepath.Join(t.TempDir(), "nope", "args.yaml")
	watcher := watch.New(missing, 10*time.Millisecond, func(context.Context) error { return nil })

	mgr := &blockingManager{}
	app := NewApp(log.WithComponent("test"), mgr, watcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
