// Package slurm materializes submission scripts and hands them to sbatch.
package slurm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// Script describes a self-contained batch submission unit.
type Script struct {
	JobName     string
	Partition   string
	Time        string
	Mem         string
	CPUsPerTask int
	LogPath     string
	// Commands are rendered one per line after the SBATCH preamble. The
	// script runs under `set -euo pipefail` so any failing step fails the
	// whole job and the completion marker never appears.
	Commands []string
}

// Render produces the full script body.
func (s Script) Render() string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	if s.JobName != "" {
		fmt.Fprintf(&b, "#SBATCH --job-name=%s\n", s.JobName)
	}
	if s.Partition != "" {
		fmt.Fprintf(&b, "#SBATCH --partition=%s\n", s.Partition)
	}
	if s.Time != "" {
		fmt.Fprintf(&b, "#SBATCH --time=%s\n", s.Time)
	}
	if s.Mem != "" {
		fmt.Fprintf(&b, "#SBATCH --mem=%s\n", s.Mem)
	}
	if s.CPUsPerTask > 0 {
		fmt.Fprintf(&b, "#SBATCH --cpus-per-task=%d\n", s.CPUsPerTask)
	}
	if s.LogPath != "" {
		fmt.Fprintf(&b, "#SBATCH --output=%s\n", s.LogPath)
	}
	b.WriteString("\nset -euo pipefail\n\n")
	for _, cmd := range s.Commands {
		b.WriteString(cmd)
		b.WriteByte('\n')
	}
	return b.String()
}

// QuoteCommand renders a binary and arguments as a shell command line with
// conservative quoting.
func QuoteCommand(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteWord(binary))
	for _, arg := range args {
		parts = append(parts, quoteWord(arg))
	}
	return strings.Join(parts, " ")
}

func quoteWord(word string) string {
	if word == "" {
		return "''"
	}
	if strings.IndexFunc(word, needsQuoting) < 0 {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	switch r {
	case '-', '_', '.', '/', '=', ',', ':', '+':
		return false
	}
	return true
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

// Client wraps sbatch interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs an sbatch client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("sbatch binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit hands a materialized script to the queue. A nil error means the
// queue accepted the job, not that the job succeeded; completion is observed
// separately through filesystem markers.
func (c *Client) Submit(ctx context.Context, scriptPath string) error {
	result, err := c.exec.Run(ctx, c.binary, []string{scriptPath}, runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "submit", "sbatch", "submission failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}
