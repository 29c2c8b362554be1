// Package backend executes job plans. Trimming always runs locally; the
// post-trim steps either run synchronously in-process or are materialized
// into a batch submission script, with completion observed later through
// filesystem markers.
package backend

import (
	"context"

	"rnaseqpipe/internal/plan"
	"rnaseqpipe/internal/services/trimgalore"
)

// Backend is the polymorphic submission interface. Implementations differ in
// how post-trim steps run and in what "await completion" means.
type Backend interface {
	// Trim runs the job's trimming step synchronously, regardless of the
	// execution target.
	Trim(ctx context.Context, job *plan.Job) error
	// Dispatch runs or submits the job's post-trim steps. For queued
	// targets a nil error means accepted, not finished.
	Dispatch(ctx context.Context, job *plan.Job) error
	// Await blocks until every dispatched job is complete. Local
	// execution is already complete by the time Dispatch returns.
	Await(ctx context.Context) error
}

type trimRunner struct {
	trim *trimgalore.Client
}

func (t trimRunner) Trim(ctx context.Context, job *plan.Job) error {
	return t.trim.Run(ctx, job.Trim)
}
