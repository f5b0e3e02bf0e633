package worker

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Exit describes how the worker process ended.
type Exit struct {
	Code   int
	Signal string
	Err    error
}

// Success reports a clean zero exit.
func (e Exit) Success() bool {
	return e.Code == 0 && e.Signal == "" && (e.Err == nil || errors.Is(e.Err, exec.ErrWaitDelay))
}

func (e Exit) String() string {
	if e.Success() {
		return "exited normally"
	}
	var bits []string
	if e.Signal != "" {
		bits = append(bits, "signal="+e.Signal)
	} else {
		bits = append(bits, fmt.Sprintf("status=%d", e.Code))
	}
	if e.Err != nil && e.Signal == "" && e.Code == -1 {
		bits = append(bits, "error="+e.Err.Error())
	}
	return "exited with " + strings.Join(bits, ", ")
}

// Handle is the owned OS handle of one spawned worker. Whoever holds it is
// responsible for terminating and reaping it.
type Handle struct {
	id      string
	spec    LaunchSpec
	cmd     *exec.Cmd
	started time.Time

	done     chan struct{}
	waitOnce sync.Once
	mu       sync.RWMutex
	exit     Exit
}

// ID is the run identifier assigned at launch.
func (h *Handle) ID() string { return h.id }

// PID returns the OS process id.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

// Spec returns the invocation the worker was launched with.
func (h *Handle) Spec() LaunchSpec { return h.spec }

// StartedAt returns the launch time.
func (h *Handle) StartedAt() time.Time { return h.started }

// Done is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// TryWait reports the exit without blocking. ok is false while the process runs.
func (h *Handle) TryWait() (exit Exit, ok bool) {
	select {
	case <-h.done:
		return h.Exit(), true
	default:
		return Exit{}, false
	}
}

// Wait blocks until the process has been reaped. Repeated calls return the
// same exit.
func (h *Handle) Wait() Exit {
	<-h.done
	return h.Exit()
}

// Exit returns the recorded exit; it is the zero value until Done is closed.
func (h *Handle) Exit() Exit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exit
}

// Signal delivers sig. It returns os.ErrProcessDone once the process has been reaped.
func (h *Handle) Signal(sig os.Signal) error {
	if _, exited := h.TryWait(); exited {
		return os.ErrProcessDone
	}
	return h.cmd.Process.Signal(sig)
}

// Kill forcibly terminates the process.
func (h *Handle) Kill() error {
	if _, exited := h.TryWait(); exited {
		return os.ErrProcessDone
	}
	return h.cmd.Process.Kill()
}

func (h *Handle) waitLoop() {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()

		h.mu.Lock()
		h.exit = exitFromWait(err)
		h.mu.Unlock()

		close(h.done)
	})
}

func exitFromWait(err error) Exit {
	if err == nil {
		return Exit{}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exit := Exit{Code: exitErr.ExitCode(), Err: err}
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			exit.Signal = status.Signal().String()
		}
		return exit
	}
	// WaitDelay expiry after a clean exit still reports the child's status.
	if errors.Is(err, exec.ErrWaitDelay) {
		return Exit{Err: err}
	}
	return Exit{Code: -1, Err: err}
}
