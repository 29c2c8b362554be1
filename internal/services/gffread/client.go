// Package gffread wraps gffread annotation conversion and transcript
// extraction.
package gffread

import (
	"context"
	"errors"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// ConvertArgs builds the gff-to-gtf conversion argument list.
func ConvertArgs(gffPath, gtfPath string) []string {
	return []string{gffPath, "-T", "-o", gtfPath}
}

// ExtractArgs builds the transcript-FASTA extraction argument list.
func ExtractArgs(genomePath, gtfPath, outFasta string) []string {
	return []string{"-w", outFasta, "-g", genomePath, gtfPath}
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

// Client wraps gffread CLI interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs a gffread client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("gffread binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ConvertToGTF converts a gff/gff3 annotation to GTF. Conversion failure is
// fatal to the run.
func (c *Client) ConvertToGTF(ctx context.Context, gffPath, gtfPath string) error {
	result, err := c.exec.Run(ctx, c.binary, ConvertArgs(gffPath, gtfPath), runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "annotation", "gffread", "gtf conversion failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}

// ExtractTranscripts writes transcript sequences from the genome using the
// annotation.
func (c *Client) ExtractTranscripts(ctx context.Context, genomePath, gtfPath, outFasta string) error {
	result, err := c.exec.Run(ctx, c.binary, ExtractArgs(genomePath, gtfPath, outFasta), runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "annotation", "gffread", "transcript extraction failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}
