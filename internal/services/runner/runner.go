// Package runner executes external binaries, streaming their output lines
// and retaining a bounded stderr tail for failure reporting.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, opts Options) (Result, error)
}

// Options controls a single invocation.
type Options struct {
	// Dir is the working directory; empty means inherit.
	Dir string
	// OnLine receives every stdout and stderr line as it is produced.
	OnLine func(string)
}

// Result captures invocation output useful after completion.
type Result struct {
	// Stderr holds the retained tail of standard error.
	Stderr string
}

// maxStderrLines bounds the retained stderr tail.
const maxStderrLines = 40

// New returns the process-backed executor.
func New() Executor {
	return commandExecutor{}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	tail := newLineTail(maxStderrLines)

	scan := func(r io.Reader, keepTail bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if keepTail {
				tail.add(line)
			}
			if opts.OnLine != nil {
				opts.OnLine(line)
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout, false)
	go scan(stderr, true)
	wg.Wait()

	result := Result{Stderr: tail.String()}
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return result, fmt.Errorf("scan %s output: %w", binary, scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, fmt.Errorf("%s: %w", binary, err)
	}
	return result, nil
}

type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}
