// Package terminate stops a worker process: a graceful request, a bounded
// grace period polled for exit, a forced kill if the worker is still alive,
// and an unconditional reap.
//
// Termination is best-effort. Failures to signal or kill are recorded on the
// returned Outcome and logged, never returned to the caller, because by the
// time Terminate runs the worker no longer occupies the supervisor slot.
package terminate
