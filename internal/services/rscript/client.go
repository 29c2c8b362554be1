// Package rscript hands generated statistics scripts to the R interpreter.
package rscript

import (
	"context"
	"errors"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec runner.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps Rscript interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs an Rscript client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("Rscript binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RunScript executes a script in dir. Interpreter failure is surfaced but the
// caller decides whether it aborts anything; per-sample outputs stay intact.
func (c *Client) RunScript(ctx context.Context, scriptPath, dir string) error {
	result, err := c.exec.Run(ctx, c.binary, []string{scriptPath}, runner.Options{Dir: dir})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "collate", "Rscript", "collation script failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}
