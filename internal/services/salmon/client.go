// Package salmon wraps alignment-mode Salmon quantification.
package salmon

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// QuantRequest describes a per-sample alignment-mode quantification.
type QuantRequest struct {
	TranscriptsFasta string
	AlignedBAM       string
	OutputDir        string
	Threads          int
}

// QuantArgs builds the salmon quant argument list.
func QuantArgs(req QuantRequest) []string {
	args := []string{
		"quant",
		"-t", req.TranscriptsFasta,
		"-l", "A",
		"-a", req.AlignedBAM,
		"-o", req.OutputDir,
	}
	if req.Threads > 0 {
		args = append(args, "-p", strconv.Itoa(req.Threads))
	}
	return args
}

// QuantFilePath returns the per-sample quantification table salmon writes.
func QuantFilePath(outputDir string) string {
	return filepath.Join(outputDir, "quant.sf")
}

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

// Client wraps Salmon CLI interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs a Salmon client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("salmon binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Quant runs quantification synchronously (local execution target).
func (c *Client) Quant(ctx context.Context, req QuantRequest) error {
	result, err := c.exec.Run(ctx, c.binary, QuantArgs(req), runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "quantify", "salmon quant", "quantification failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}
