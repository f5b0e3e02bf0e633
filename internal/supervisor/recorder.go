package supervisor

import (
	"context"
	"time"

	"vaultlens/internal/logging"
	"vaultlens/internal/terminate"
)

// LaunchRecord describes a worker that entered the slot.
type LaunchRecord struct {
	RunID     string
	PID       int
	Vault     string
	Script    string
	Command   string
	StartedAt time.Time
}

// ExitRecord describes a worker that left the slot and was reaped.
type ExitRecord struct {
	RunID    string
	Reason   string
	Graceful bool
	Forced   bool
	ExitCode int
	Signal   string
	Elapsed  time.Duration
	EndedAt  time.Time
}

// Recorder persists worker runs. Calls happen outside the slot lock and
// failures are logged, never returned to callers.
type Recorder interface {
	RecordLaunch(ctx context.Context, rec LaunchRecord) error
	RecordExit(ctx context.Context, rec ExitRecord) error
}

func (s *Supervisor) recordLaunch(ctx context.Context, r *run) {
	if s.recorder == nil {
		return
	}
	rec := LaunchRecord{
		RunID:     r.handle.ID(),
		PID:       r.handle.PID(),
		Vault:     r.vault,
		Script:    r.script,
		Command:   r.handle.Spec().Command(),
		StartedAt: r.handle.StartedAt(),
	}
	if err := s.recorder.RecordLaunch(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record worker launch", "history_record_failed",
			logging.String(logging.FieldRunID, rec.RunID),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
			logging.Error(err),
		)
	}
}

func (s *Supervisor) recordExit(ctx context.Context, r *run, reason string, out terminate.Outcome) {
	if s.recorder == nil {
		return
	}
	rec := ExitRecord{
		RunID:    r.handle.ID(),
		Reason:   reason,
		Graceful: out.Graceful,
		Forced:   out.Forced,
		ExitCode: out.Exit.Code,
		Signal:   out.Exit.Signal,
		Elapsed:  out.Elapsed,
		EndedAt:  time.Now(),
	}
	if err := s.recorder.RecordExit(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record worker exit", "history_record_failed",
			logging.String(logging.FieldRunID, rec.RunID),
			logging.String(logging.FieldImpact, "run history will show the run as abandoned"),
			logging.Error(err),
		)
	}
}
