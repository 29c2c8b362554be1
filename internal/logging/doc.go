// Package logging builds the slog loggers used across the pipeline and
// defines the standardized attribute keys that tie log lines back to a run,
// sample, and stage.
package logging
