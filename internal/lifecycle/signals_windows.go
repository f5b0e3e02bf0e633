//go:build windows

package lifecycle

import "os"

var shutdownSignals = []os.Signal{os.Interrupt}

func eventForSignal(os.Signal) Event { return EventCloseRequested }
