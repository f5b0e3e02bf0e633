//go:build !windows

package terminate

import (
	"errors"

	"golang.org/x/sys/unix"
)

// SignalTerminator sends SIGTERM.
type SignalTerminator struct{}

func (SignalTerminator) RequestExit(p Process) error {
	return p.Signal(unix.SIGTERM)
}

func (SignalTerminator) Name() string { return "sigterm" }

// DefaultGraceful returns SIGTERM delivery.
func DefaultGraceful() GracefulTerminator { return SignalTerminator{} }

// Alive reports whether pid still names a live, unreaped process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
