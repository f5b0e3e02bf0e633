// Package main hosts the VaultLens CLI entrypoint and command graph.
//
// The host command runs the long-lived supervisor process. The remaining
// commands talk to it over the IPC socket (start, stop, status, close) or
// read local state directly (history, config). A start request launches a
// detached host first when none is answering.
package main
