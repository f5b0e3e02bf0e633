// Package supervisor owns the single worker slot.
//
// The slot is either empty or holds one running worker handle. Every path
// that removes a handle (Stop, OnShutdown, or a replacing Start) takes it out
// of the slot under the mutex and terminates it after releasing the mutex, so
// the lock never spans the grace period, the forced kill, or the reap. The
// caller that took a handle is the only one that terminates it.
package supervisor
