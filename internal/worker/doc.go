// Package worker spawns the supervised worker process and owns its OS handle.
//
// A Handle runs exactly one reaping goroutine. TryWait observes it without
// blocking and Wait blocks on it, so the non-blocking exit check and the final
// reap never race on the underlying wait call.
package worker
