//go:build !windows

package lifecycle

import (
	"os"

	"golang.org/x/sys/unix"
)

var shutdownSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

func eventForSignal(sig os.Signal) Event {
	if sig == unix.SIGINT {
		return EventCloseRequested
	}
	return EventDestroyed
}
