package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vaultlens/internal/config"
	"vaultlens/internal/logging"
	"vaultlens/internal/resolve"
	"vaultlens/internal/terminate"
	"vaultlens/internal/worker"
)

// Reasons recorded when a worker leaves the slot.
const (
	ReasonStopped  = "stopped"
	ReasonReplaced = "replaced"
	ReasonShutdown = "shutdown"
)

// Resolver locates the worker script.
type Resolver interface {
	Resolve() (string, error)
}

// Launcher spawns a worker.
type Launcher interface {
	Launch(spec worker.LaunchSpec) (*worker.Handle, error)
}

// Terminator stops and reaps a worker.
type Terminator interface {
	Terminate(p terminate.Process) terminate.Outcome
}

// Options configures a Supervisor.
type Options struct {
	Resolver    Resolver
	Launcher    Launcher
	Terminator  Terminator
	Interpreter string
	Recorder    Recorder
	Logger      *slog.Logger
}

type run struct {
	handle *worker.Handle
	vault  string
	script string
}

// Supervisor guarantees at most one worker process at a time.
type Supervisor struct {
	resolver    Resolver
	launcher    Launcher
	terminator  Terminator
	interpreter string
	recorder    Recorder
	logger      *slog.Logger

	mu      sync.Mutex
	current *run
}

// New constructs a Supervisor with an empty slot.
func New(opts Options) (*Supervisor, error) {
	if opts.Resolver == nil {
		return nil, errors.New("supervisor: resolver required")
	}
	if opts.Interpreter == "" {
		return nil, errors.New("supervisor: interpreter required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "supervisor")
	if opts.Launcher == nil {
		opts.Launcher = worker.Launcher{}
	}
	if opts.Terminator == nil {
		opts.Terminator = terminate.New(nil, opts.Logger)
	}
	return &Supervisor{
		resolver:    opts.Resolver,
		launcher:    opts.Launcher,
		terminator:  opts.Terminator,
		interpreter: opts.Interpreter,
		recorder:    opts.Recorder,
		logger:      logger,
	}, nil
}

// NewFromConfig wires the resolver and interpreter from configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, recorder Recorder) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor: config required")
	}
	return New(Options{
		Resolver:    resolve.FromConfig(cfg),
		Interpreter: cfg.InterpreterBinary(),
		Recorder:    recorder,
		Logger:      logger,
	})
}

// Start stops any running worker, then launches a new one for vaultPath.
// On failure the slot is left empty and no worker from this supervisor runs.
func (s *Supervisor) Start(ctx context.Context, vaultPath string) error {
	logger := logging.WithContext(ctx, s.logger)

	if prev := s.take(); prev != nil {
		s.terminate(ctx, prev, ReasonReplaced)
	}

	script, err := s.resolver.Resolve()
	if err != nil {
		logging.ErrorWithContext(logger, "worker script resolution failed", "worker_resolve_failed",
			logging.String(logging.FieldVault, vaultPath),
			logging.String(logging.FieldErrorHint, "check worker.mode and the backend location"),
			logging.Error(err),
		)
		return fmt.Errorf("resolve worker script: %w", err)
	}

	spec := worker.LaunchSpec{Interpreter: s.interpreter, Script: script, VaultPath: vaultPath}
	handle, err := s.launcher.Launch(spec)
	if err != nil {
		logging.ErrorWithContext(logger, "worker launch failed", "worker_launch_failed",
			logging.String(logging.FieldVault, vaultPath),
			logging.String("command", spec.Command()),
			logging.String(logging.FieldErrorHint, "check that the interpreter is installed and on PATH"),
			logging.Error(err),
		)
		return fmt.Errorf("launch worker: %w", err)
	}

	next := &run{handle: handle, vault: vaultPath, script: script}
	s.recordLaunch(ctx, next)

	if displaced := s.store(next); displaced != nil {
		// A concurrent Start stored its worker after our take.
		s.terminate(ctx, displaced, ReasonReplaced)
	}

	logger.Info("worker launched",
		logging.String(logging.FieldRunID, handle.ID()),
		logging.Int(logging.FieldPID, handle.PID()),
		logging.String(logging.FieldVault, vaultPath),
		logging.String("script", script),
		logging.String(logging.FieldEventType, "worker_launched"),
	)
	return nil
}

// Stop terminates the running worker, if any. Stopping an empty slot is a
// no-op that touches no process.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.stop(ctx, ReasonStopped)
	return nil
}

// OnShutdown has the same effect as Stop and is invoked when the host closes.
// It reports whether a worker was running and has been stopped.
func (s *Supervisor) OnShutdown(ctx context.Context) (bool, error) {
	return s.stop(ctx, ReasonShutdown), nil
}

func (s *Supervisor) stop(ctx context.Context, reason string) bool {
	r := s.take()
	if r == nil {
		logging.WithContext(ctx, s.logger).Debug("stop requested with no worker running",
			logging.String("reason", reason))
		return false
	}
	s.terminate(ctx, r, reason)
	return true
}

// Status is a point-in-time view of the slot.
type Status struct {
	Running   bool
	Alive     bool
	RunID     string
	PID       int
	Vault     string
	Script    string
	StartedAt time.Time
	Exit      string
}

// Status snapshots the slot.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return Status{}
	}
	st := Status{
		Running:   true,
		Alive:     true,
		RunID:     r.handle.ID(),
		PID:       r.handle.PID(),
		Vault:     r.vault,
		Script:    r.script,
		StartedAt: r.handle.StartedAt(),
	}
	if exit, exited := r.handle.TryWait(); exited {
		st.Alive = false
		st.Exit = exit.String()
	}
	return st
}

// take empties the slot and returns what it held.
func (s *Supervisor) take() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.current
	s.current = nil
	return r
}

// store fills the slot and returns any handle it displaced.
func (s *Supervisor) store(r *run) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = r
	return prev
}

func (s *Supervisor) terminate(ctx context.Context, r *run, reason string) {
	out := s.terminator.Terminate(r.handle)
	logging.WithContext(ctx, s.logger).Info("worker stopped",
		logging.String(logging.FieldRunID, r.handle.ID()),
		logging.Int(logging.FieldPID, r.handle.PID()),
		logging.String(logging.FieldVault, r.vault),
		logging.String("reason", reason),
		logging.Bool("forced", out.Forced),
		logging.Duration("elapsed", out.Elapsed),
		logging.String("exit", out.Exit.String()),
		logging.String(logging.FieldEventType, "worker_stopped"),
	)
	s.recordExit(ctx, r, reason, out)
}
