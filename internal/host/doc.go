// Package host runs the long-lived VaultLens host process.
//
// A host holds an exclusive lock so only one supervisor exists per state
// directory, writes a pid file and a per-run log behind a stable
// vaultlens.log pointer, serves the worker commands over IPC and optionally
// HTTP, and forwards close signals to the supervisor through the lifecycle
// hook before it exits.
package host
