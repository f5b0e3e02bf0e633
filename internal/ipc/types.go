package ipc

// StartPythonRequest asks the host to (re)start the worker for a vault.
type StartPythonRequest struct {
	VaultPath string `json:"vault_path"`
}

// StartPythonResponse reports the start result.
type StartPythonResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StopPythonRequest asks the host to stop the worker.
type StopPythonRequest struct{}

// StopPythonResponse reports the stop result.
type StopPythonResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatusRequest fetches host and worker status.
type StatusRequest struct{}

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

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse combines host and worker status.
type StatusResponse struct {
	HostPID      int                `json:"host_pid"`
	SessionID    string             `json:"session_id"`
	Mode         string             `json:"mode"`
	LockPath     string             `json:"lock_path"`
	HistoryPath  string             `json:"history_path"`
	Worker       WorkerStatus       `json:"worker"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// CloseRequest asks the host to shut down.
type CloseRequest struct{}

// CloseResponse acknowledges a close request.
type CloseResponse struct {
	Accepted bool `json:"accepted"`
}
