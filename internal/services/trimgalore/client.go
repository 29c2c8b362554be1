// Package trimgalore wraps Trim Galore invocations and its output naming
// conventions.
package trimgalore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// Request describes a single trimming invocation. Inputs holds one file for
// single-end layouts and exactly two mate files for paired layouts.
type Request struct {
	Paired    bool
	Gzip      bool
	OutputDir string
	Inputs    []string
}

// Args builds the trim_galore argument list for a request.
func Args(req Request) []string {
	args := make([]string, 0, len(req.Inputs)+5)
	if req.Paired {
		args = append(args, "--paired")
	}
	if req.Gzip {
		args = append(args, "--gzip")
	} else {
		args = append(args, "--dont_gzip")
	}
	args = append(args, "-o", req.OutputDir)
	args = append(args, req.Inputs...)
	return args
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

// Client wraps Trim Galore CLI interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs a Trim Galore client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("trim_galore binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Run executes trimming synchronously. Trimming always runs locally, even for
// cluster-targeted jobs.
func (c *Client) Run(ctx context.Context, req Request) error {
	if len(req.Inputs) == 0 {
		return services.Wrap(services.ErrValidation, "trim", "run", "no input files", nil)
	}
	if req.Paired && len(req.Inputs) != 2 {
		return services.Wrap(services.ErrValidation, "trim", "run",
			fmt.Sprintf("paired trim expects 2 files, got %d", len(req.Inputs)), nil)
	}
	result, err := c.exec.Run(ctx, c.binary, Args(req), runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "trim", "trim_galore", "trimming failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}

// Version reports the installed trimmer version, parsed from the
// "version x.y.z" line of --version output.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string
	result, err := c.exec.Run(ctx, c.binary, []string{"--version"}, runner.Options{
		OnLine: func(line string) {
			if version != "" {
				return
			}
			fields := strings.Fields(line)
			for i, field := range fields {
				if strings.EqualFold(field, "version") && i+1 < len(fields) {
					version = fields[i+1]
					return
				}
			}
		},
	})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "trim", "trim_galore", "version query failed", err)
		return "", services.WithStderr(wrapped, result.Stderr)
	}
	if version == "" {
		return "", services.Wrap(services.ErrExternalTool, "trim", "trim_galore", "version not reported", nil)
	}
	return version, nil
}

// stem strips the fastq suffix (and any gzip suffix) from a read filename.
func stem(input string) string {
	name := filepath.Base(input)
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".fastq")
	name = strings.TrimSuffix(name, ".fq")
	return name
}

func outExt(gzip bool) string {
	if gzip {
		return ".fq.gz"
	}
	return ".fq"
}

// TrimmedSingle returns the file Trim Galore produces for a single-end input.
func TrimmedSingle(outputDir, input string, gzip bool) string {
	return filepath.Join(outputDir, stem(input)+"_trimmed"+outExt(gzip))
}

// TrimmedPair returns the validated mate files Trim Galore produces for a
// paired input.
func TrimmedPair(outputDir, mate1, mate2 string, gzip bool) (string, string) {
	return filepath.Join(outputDir, stem(mate1)+"_val_1"+outExt(gzip)),
		filepath.Join(outputDir, stem(mate2)+"_val_2"+outExt(gzip))
}
