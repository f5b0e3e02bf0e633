package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"vaultlens/internal/logging"
)

// Event is a host notification that the application is going away.
type Event int

const (
	// EventCloseRequested means a user or client asked the host to close.
	EventCloseRequested Event = iota + 1
	// EventDestroyed means the host is being torn down without a request.
	EventDestroyed
)

func (e Event) String() string {
	switch e {
	case EventCloseRequested:
		return "close_requested"
	case EventDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// Shutdowner is the supervisor's shutdown path. OnShutdown reports whether
// a running worker was stopped.
type Shutdowner interface {
	OnShutdown(ctx context.Context) (bool, error)
}

// Hook delivers the first close or destroy event to a Shutdowner.
type Hook struct {
	target Shutdowner
	logger *slog.Logger
	events chan Event
}

// NewHook returns a hook bound to target.
func NewHook(target Shutdowner, logger *slog.Logger) *Hook {
	return &Hook{
		target: target,
		logger: logging.NewComponentLogger(logger, "lifecycle"),
		events: make(chan Event, 1),
	}
}

// Notify queues ev without blocking. Only the first queued event is kept.
func (h *Hook) Notify(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// Handle runs the shutdown path for ev and waits for it to finish.
func (h *Hook) Handle(ctx context.Context, ev Event) error {
	// Cleanup must complete even when the triggering context is already done.
	ctx = context.WithoutCancel(ctx)
	stopped, err := h.target.OnShutdown(ctx)
	if err != nil {
		logging.ErrorWithContext(h.logger, "worker shutdown on close failed", "worker_shutdown_failed",
			logging.String("event", ev.String()),
			logging.Error(err),
		)
		return fmt.Errorf("shutdown on %s: %w", ev, err)
	}
	if !stopped {
		h.logger.Debug("no worker running on close", logging.String("event", ev.String()))
		return nil
	}
	h.logger.Info("worker process terminated on window close",
		logging.String("event", ev.String()),
		logging.String(logging.FieldEventType, "worker_shutdown_on_close"),
	)
	return nil
}

// Run blocks until an event is notified or ctx ends, then handles it.
// Context cancellation counts as EventDestroyed.
func (h *Hook) Run(ctx context.Context) (Event, error) {
	var ev Event
	select {
	case ev = <-h.events:
	case <-ctx.Done():
		ev = EventDestroyed
	}
	return ev, h.Handle(ctx, ev)
}

// WatchSignals forwards host termination signals to the hook until the
// returned stop function is called.
func (h *Hook) WatchSignals() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				h.logger.Debug("host signal received", logging.String("signal", sig.String()))
				h.Notify(eventForSignal(sig))
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
