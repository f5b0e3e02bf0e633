package history

import "time"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusExited    Status = "exited"
	StatusAbandoned Status = "abandoned"
)

// Run is one worker process as recorded in the ledger.
type Run struct {
	RunID     string
	PID       int
	Vault     string
	Script    string
	Command   string
	Status    Status
	Reason    string
	Graceful  bool
	Forced    bool
	ExitCode  *int
	Signal    string
	Elapsed   time.Duration
	StartedAt time.Time
	EndedAt   *time.Time
}

// Outcome renders how the run ended for tables.
func (r Run) Outcome() string {
	switch r.Status {
	case StatusRunning:
		return "running"
	case StatusAbandoned:
		return "abandoned"
	}
	switch {
	case r.Forced:
		return "killed"
	case r.Graceful:
		return "graceful"
	default:
		return "exited"
	}
}
