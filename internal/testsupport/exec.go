package testsupport

import (
	"context"
	"sync"

	"rnaseqpipe/internal/services/runner"
)

// Invocation records one executor call.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
}

// FakeExecutor records invocations and returns canned results. The zero value
// succeeds every call.
type FakeExecutor struct {
	mu    sync.Mutex
	calls []Invocation

	// Err, when set, is returned from every Run call.
	Err error
	// Stderr is returned as the retained stderr tail.
	Stderr string
	// Lines are fed to the caller's OnLine callback, when one is set.
	Lines []string
	// OnRun, when set, is consulted per call and overrides Err/Stderr.
	OnRun func(inv Invocation) (runner.Result, error)
}

var _ runner.Executor = (*FakeExecutor)(nil)

func (f *FakeExecutor) Run(_ context.Context, binary string, args []string, opts runner.Options) (runner.Result, error) {
	inv := Invocation{Binary: binary, Args: append([]string(nil), args...), Dir: opts.Dir}
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if f.OnRun != nil {
		return f.OnRun(inv)
	}
	if opts.OnLine != nil {
		for _, line := range f.Lines {
			opts.OnLine(line)
		}
	}
	return runner.Result{Stderr: f.Stderr}, f.Err
}

// Calls returns a copy of the recorded invocations.
func (f *FakeExecutor) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}

// CallCount returns the number of recorded invocations.
func (f *FakeExecutor) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
