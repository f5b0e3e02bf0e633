// Package ipc exposes the host's worker commands over JSON-RPC on a Unix
// domain socket and ships the matching client used by the CLI.
//
// StartPython and StopPython report failures in the response body as opaque
// text rather than as RPC errors, so UI clients can show the message as is.
// Close asks the host to run its shutdown path and exit.
package ipc
