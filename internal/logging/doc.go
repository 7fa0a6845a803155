// Package logging builds slog loggers with Baler's output conventions.
//
// It provides a human-oriented console handler and a JSON handler, shared
// attribute helpers, canonical field-name constants, and context-derived
// fields (item id, stage, run id) via WithContext. Run logs are written per
// run and pruned by CleanupOldLogs according to the configured retention.
package logging
