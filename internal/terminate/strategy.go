package terminate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vaultlens/internal/logging"
	"vaultlens/internal/worker"
)

const (
	// GracePeriod bounds how long a worker may take to exit after the graceful request.
	GracePeriod = 800 * time.Millisecond
	// PollInterval is the sleep between non-blocking exit checks.
	PollInterval = 50 * time.Millisecond
)

// Process is the slice of a worker handle termination needs.
type Process interface {
	PID() int
	Signal(sig os.Signal) error
	TryWait() (worker.Exit, bool)
	Kill() error
	Wait() worker.Exit
}

// GracefulTerminator asks a process to exit on its own.
type GracefulTerminator interface {
	RequestExit(p Process) error
	Name() string
}

// NoopTerminator is used where the platform has no graceful signal.
type NoopTerminator struct{}

func (NoopTerminator) RequestExit(Process) error { return nil }

func (NoopTerminator) Name() string { return "none" }

// Outcome describes how a termination went.
type Outcome struct {
	Graceful  bool
	Forced    bool
	Elapsed   time.Duration
	Exit      worker.Exit
	SignalErr error
	KillErr   error
}

func (o Outcome) String() string {
	how := "graceful"
	if o.Forced {
		how = "forced"
	}
	return fmt.Sprintf("%s after %s, %s", how, o.Elapsed.Round(time.Millisecond), o.Exit)
}

// Strategy runs the termination sequence.
type Strategy struct {
	graceful GracefulTerminator
	logger   *slog.Logger
}

// New builds a strategy. A nil graceful terminator selects the platform default.
func New(graceful GracefulTerminator, logger *slog.Logger) *Strategy {
	if graceful == nil {
		graceful = DefaultGraceful()
	}
	return &Strategy{
		graceful: graceful,
		logger:   logging.NewComponentLogger(logger, "terminate"),
	}
}

// Terminate stops p and reaps it. It always runs to completion.
func (s *Strategy) Terminate(p Process) Outcome {
	start := time.Now()
	var out Outcome

	if err := s.graceful.RequestExit(p); err != nil && !errors.Is(err, os.ErrProcessDone) {
		out.SignalErr = err
		s.logger.Debug("graceful request failed",
			logging.Int(logging.FieldPID, p.PID()),
			logging.String("terminator", s.graceful.Name()),
			logging.Error(err),
		)
	}

	deadline := start.Add(GracePeriod)
	for {
		if _, exited := p.TryWait(); exited {
			out.Graceful = true
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(PollInterval)
	}

	if !out.Graceful {
		out.Forced = true
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			out.KillErr = err
		}
	}

	out.Exit = p.Wait()
	out.Elapsed = time.Since(start)

	if out.Forced {
		attrs := []logging.Attr{
			logging.Int(logging.FieldPID, p.PID()),
			logging.Duration("grace_period", GracePeriod),
			logging.String("exit", out.Exit.String()),
			logging.String(logging.FieldErrorHint, "worker should exit promptly on SIGTERM"),
			logging.String(logging.FieldImpact, "worker was killed without a chance to clean up"),
		}
		if out.KillErr != nil {
			attrs = append(attrs, logging.Error(out.KillErr))
		}
		logging.WarnWithContext(s.logger, "worker ignored graceful request; killed", "worker_force_killed", attrs...)
	} else {
		s.logger.Debug("worker exited within grace period",
			logging.Int(logging.FieldPID, p.PID()),
			logging.Duration("elapsed", out.Elapsed),
			logging.String("exit", out.Exit.String()),
		)
	}
	return out
}
