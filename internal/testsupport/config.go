// Package testsupport provides shared helpers for package tests: canned
// configurations, fixture read directories, and a recording executor.
package testsupport

import (
	"testing"

	"rnaseqpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config with fast dispatch timings suitable for tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Execution.SubmissionDelaySeconds = 0
	cfg.Execution.PollIntervalSeconds = 1
	cfg.Index.Threads = 1
	cfg.Align.Threads = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPollInterval overrides the completion poll interval in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Execution.PollIntervalSeconds = seconds
	}
}

// WithAwaitTimeout overrides the completion await timeout in minutes.
func WithAwaitTimeout(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Execution.AwaitTimeoutMinutes = minutes
	}
}
