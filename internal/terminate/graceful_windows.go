//go:build windows

package terminate

import "golang.org/x/sys/windows"

// DefaultGraceful returns a no-op; windows has no SIGTERM equivalent for
// console-less children, so termination relies on the forced kill.
func DefaultGraceful() GracefulTerminator { return NoopTerminator{} }

// Alive reports whether pid still names a running process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	const stillActive = 259
	return code == stillActive
}
