package httpapi

// StartRequest is the body of POST /api/worker/start.
type StartRequest struct {
	VaultPath string `json:"vault_path"`
}

// CommandResponse mirrors the command surface's Result<(), string>.
type CommandResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WorkerStatus describes the supervised worker.
type WorkerStatus struct {
	Running   bool   `json:"running"`
	Alive     bool   `json:"alive"`
	RunID     string `json:"run_id,omitempty"`
	PID       int    `json:"pid,omitempty"`
	Vault     string `json:"vault,omitempty"`
	Script    string `json:"script,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Exit      string `json:"exit,omitempty"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	HostPID   int          `json:"host_pid"`
	SessionID string       `json:"session_id,omitempty"`
	Worker    WorkerStatus `json:"worker"`
}

// RunEntry is one row of GET /api/history.
type RunEntry struct {
	RunID     string `json:"run_id"`
	PID       int    `json:"pid"`
	Vault     string `json:"vault"`
	Status    string `json:"status"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Runs []RunEntry `json:"runs"`
}
