// Package logging assembles structured slog loggers and formatting helpers used
// across VaultLens.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so command handlers can tag log lines with
// correlation IDs and worker run IDs. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing.
package logging
