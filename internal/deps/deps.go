package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"vaultlens/internal/config"
	"vaultlens/internal/resolve"
)

// Requirement defines an external binary the host relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Resolved = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckWorkerScript reports whether the worker entry point resolves.
func CheckWorkerScript(r resolve.Resolver) Status {
	status := Status{
		Name:        "Worker script",
		Description: fmt.Sprintf("Search backend entry point (%s mode)", r.Mode),
	}
	path, err := r.Resolve()
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = path
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		status.Detail = fmt.Sprintf("script %q not found", path)
		return status
	}
	status.Resolved = path
	status.Available = true
	return status
}

// Check reports every dependency the configured worker needs.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries([]Requirement{{
		Name:        "Python interpreter",
		Command:     cfg.InterpreterBinary(),
		Description: "Runs the search backend",
	}})
	return append(results, CheckWorkerScript(resolve.FromConfig(cfg)))
}
