package worker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSpawnFailed matches every launch failure.
var ErrSpawnFailed = errors.New("spawn failed")

// LaunchError reports that the OS refused to create the worker process.
type LaunchError struct {
	Interpreter string
	Script      string
	Cause       error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start worker (%s %s): %v", e.Interpreter, e.Script, e.Cause)
}

// Unwrap exposes the launch sentinel and the OS error.
func (e *LaunchError) Unwrap() []error { return []error{ErrSpawnFailed, e.Cause} }

// LaunchSpec is the immutable invocation for one start request.
type LaunchSpec struct {
	Interpreter string
	Script      string
	VaultPath   string
}

// Args returns the argument list passed after the interpreter.
func (s LaunchSpec) Args() []string {
	return []string{s.Script, "--vault", s.VaultPath}
}

// Command renders the full invocation for logs.
func (s LaunchSpec) Command() string {
	return strings.Join(append([]string{s.Interpreter}, s.Args()...), " ")
}

// Launcher spawns worker processes. The zero value inherits the host's
// standard streams and environment.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launch starts the worker using the default launcher.
func Launch(spec LaunchSpec) (*Handle, error) {
	return Launcher{}.Launch(spec)
}

// Launch starts the worker described by spec and returns immediately.
func (l Launcher) Launch(spec LaunchSpec) (*Handle, error) {
	if strings.TrimSpace(spec.Interpreter) == "" {
		return nil, &LaunchError{Interpreter: spec.Interpreter, Script: spec.Script, Cause: errors.New("interpreter not set")}
	}

	cmd := exec.Command(spec.Interpreter, spec.Args()...)
	cmd.Stdin = l.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	// Bounds Wait when a killed worker leaves a grandchild holding a copied pipe.
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Interpreter: spec.Interpreter, Script: spec.Script, Cause: err}
	}

	h := &Handle{
		id:      uuid.NewString(),
		spec:    spec,
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go h.waitLoop()
	return h, nil
}
