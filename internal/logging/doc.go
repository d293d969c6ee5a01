// Package logging assembles structured slog loggers and formatting helpers used
// across ShowSweep.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so the sweep pipeline can tag log
// lines with run IDs, item keys, and source names. Each run additionally gets
// its own JSON log (OpenRunLog) which CleanupOldLogs prunes by age. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
