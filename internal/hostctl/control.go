// Package hostctl starts, queries, and stops a VaultLens host from the CLI.
package hostctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vaultlens/internal/config"
	"vaultlens/internal/deps"
	"vaultlens/internal/ipc"
)

// ErrHostNotRunning indicates host IPC is unavailable.
var ErrHostNotRunning = errors.New("host not running")

// LaunchOptions controls host process launch behavior.
type LaunchOptions struct {
	ConfigPath  string
	Development bool
	LogLevel    string
}

// Launch starts a detached host process. Its console output is suppressed;
// logs go to the per-run file in the log directory.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"host", "--quiet"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.Development {
		args = append(args, "--dev")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch host: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for the IPC socket and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for host")
	}
	return nil, fmt.Errorf("host failed to start: %w", lastErr)
}

// EnsureHost returns a client for a running host, launching one first when
// none answers. launched reports whether this call started the host.
func EnsureHost(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (client *ipc.Client, launched bool, err error) {
	client, err = ipc.Dial(socketPath)
	if err == nil {
		return client, false, nil
	}
	if !isHostUnavailable(err) {
		return nil, false, err
	}
	if err := Launch(executablePath, opts); err != nil {
		return nil, false, err
	}
	client, err = WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return nil, true, err
	}
	return client, true, nil
}

// WaitForShutdown waits until the host socket stops answering.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isHostUnavailable(err) {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		_ = client.Close()
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("host did not stop: socket %s still accepting connections", socketPath)
}

// ForceKillProcess kills the host process recorded in pidPath and removes
// the pid file. fallbackPID is used when the file is missing or empty.
func ForceKillProcess(pidPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read host pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine host pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate host process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill host process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return pid, nil
}

// StopResult captures the host close outcome.
type StopResult struct {
	CloseAccepted bool
	ForcedKill    bool
	PID           int
}

// StopHost asks the host to close, which stops the worker first, and
// force-kills the host if it is still answering after gracePeriod.
func StopHost(ctx context.Context, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	socketPath := cfg.SocketPath()
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isHostUnavailable(err) {
			return StopResult{}, ErrHostNotRunning
		}
		return StopResult{}, err
	}
	result := StopResult{}
	if status, statusErr := client.Status(ctx); statusErr == nil && status != nil {
		result.PID = status.HostPID
	}
	resp, err := client.CloseHost(ctx)
	_ = client.Close()
	if err != nil {
		return result, fmt.Errorf("request host close: %w", err)
	}
	result.CloseAccepted = resp != nil && resp.Accepted

	if err := WaitForShutdown(socketPath, gracePeriod); err == nil {
		return result, nil
	}

	killed, killErr := ForceKillProcess(cfg.PIDPath(), result.PID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop host process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Snapshot is a status view that works with or without a running host.
type Snapshot struct {
	HostRunning bool
	Status      ipc.StatusResponse
}

// BuildStatusSnapshot queries the host and falls back to a local dependency
// check when no host answers.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}
	snapshot := Snapshot{}
	client, err := ipc.Dial(cfg.SocketPath())
	if err == nil {
		defer client.Close()
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if resp, statusErr := client.Status(queryCtx); statusErr == nil && resp != nil {
			snapshot.HostRunning = true
			snapshot.Status = *resp
		}
	}
	if !snapshot.HostRunning {
		snapshot.Status.Mode = cfg.Worker.Mode
		snapshot.Status.LockPath = cfg.LockPath()
		snapshot.Status.HistoryPath = cfg.HistoryDBPath()
	}
	if len(snapshot.Status.Dependencies) == 0 {
		snapshot.Status.Dependencies = ipc.DependencyStatuses(deps.Check(cfg))
	}
	return snapshot, nil
}

func isHostUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
