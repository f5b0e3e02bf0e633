package lifecycle_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vaultlens/internal/lifecycle"
	"vaultlens/internal/logging"
)

type fakeSupervisor struct {
	mu    sync.Mutex
	calls int
	err   error
	idle  bool
	ctxOK bool
}

func (f *fakeSupervisor) OnShutdown(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxOK = ctx.Err() == nil
	return f.err == nil && !f.idle, f.err
}

func jsonLogger(t *testing.T) (*slog.Logger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "hook.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	return logger, logPath
}

func TestRunHandlesFirstNotifiedEvent(t *testing.T) {
	logger, logPath := jsonLogger(t)
	sup := &fakeSupervisor{}
	hook := lifecycle.NewHook(sup, logger)

	hook.Notify(lifecycle.EventCloseRequested)
	hook.Notify(lifecycle.EventDestroyed)

	ev, err := hook.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ev != lifecycle.EventCloseRequested {
		t.Fatalf("expected first event to win, got %s", ev)
	}
	if sup.calls != 1 {
		t.Fatalf("expected one shutdown call, got %d", sup.calls)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(content), "worker process terminated on window close") {
		t.Fatalf("expected cleanup note in log, got %q", content)
	}
}

func TestRunTreatsCancellationAsDestroy(t *testing.T) {
	sup := &fakeSupervisor{}
	hook := lifecycle.NewHook(sup, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev, err := hook.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ev != lifecycle.EventDestroyed {
		t.Fatalf("expected destroyed event, got %s", ev)
	}
	if sup.calls != 1 || !sup.ctxOK {
		t.Fatalf("expected shutdown with a live context, calls=%d ctxOK=%v", sup.calls, sup.ctxOK)
	}
}

func TestHandleSkipsCleanupNoteWhenIdle(t *testing.T) {
	logger, logPath := jsonLogger(t)
	sup := &fakeSupervisor{idle: true}
	hook := lifecycle.NewHook(sup, logger)

	if err := hook.Handle(context.Background(), lifecycle.EventCloseRequested); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sup.calls != 1 {
		t.Fatalf("expected one shutdown call, got %d", sup.calls)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(content), "worker process terminated on window close") {
		t.Fatalf("expected no cleanup note with an empty slot, got %q", content)
	}
}

func TestHandlePropagatesShutdownError(t *testing.T) {
	boom := errors.New("boom")
	hook := lifecycle.NewHook(&fakeSupervisor{err: boom}, logging.NewNop())
	if err := hook.Handle(context.Background(), lifecycle.EventDestroyed); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped shutdown error, got %v", err)
	}
}

func TestRunWaitsForEvent(t *testing.T) {
	sup := &fakeSupervisor{}
	hook := lifecycle.NewHook(sup, logging.NewNop())

	done := make(chan lifecycle.Event, 1)
	go func() {
		ev, _ := hook.Run(context.Background())
		done <- ev
	}()

	select {
	case ev := <-done:
		t.Fatalf("Run returned before any event: %s", ev)
	case <-time.After(50 * time.Millisecond):
	}

	hook.Notify(lifecycle.EventDestroyed)
	select {
	case ev := <-done:
		if ev != lifecycle.EventDestroyed {
			t.Fatalf("unexpected event %s", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Notify")
	}
}
