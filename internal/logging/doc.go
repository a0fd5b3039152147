// Package logging assembles structured slog loggers and formatting helpers
// used across audiochain.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so chain code can tag log lines
// with the run correlation id. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
