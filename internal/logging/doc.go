// Package logging assembles structured slog loggers and formatting helpers used
// across embyscout.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so search, check, and scan code
// can tag log lines with the media server, scan path, and job identifiers
// carried on the context. A no-op logger is provided for tests.
package logging
