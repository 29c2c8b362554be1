package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/plan"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
	"rnaseqpipe/internal/services/trimgalore"
)

// Local executes post-trim steps synchronously in the job's own working
// directory. Any step failure aborts the run.
type Local struct {
	trimRunner
	exec   runner.Executor
	logger *slog.Logger
}

// NewLocal constructs the local backend.
func NewLocal(trim *trimgalore.Client, exec runner.Executor, logger *slog.Logger) *Local {
	if exec == nil {
		exec = runner.New()
	}
	return &Local{
		trimRunner: trimRunner{trim: trim},
		exec:       exec,
		logger:     logging.NewComponentLogger(logger, "backend.local"),
	}
}

// Dispatch runs each step in order inside the sample's subdirectory,
// isolating its output filenames from other samples.
func (l *Local) Dispatch(ctx context.Context, job *plan.Job) error {
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create sample directory: %w", err)
	}
	for _, step := range job.Steps {
		stepCtx := logging.WithStage(logging.WithSample(ctx, job.Sample.ID), step.Stage)
		logger := logging.WithContext(stepCtx, l.logger)
		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		result, err := l.exec.Run(stepCtx, step.Command.Binary, step.Command.Args, runner.Options{Dir: job.WorkDir})
		if err != nil {
			wrapped := services.Wrap(services.ErrExternalTool, step.Stage, step.Command.Binary, "step failed", err)
			return services.WithStderr(wrapped, result.Stderr)
		}
		logger.Info("stage completed", logging.String(logging.FieldEventType, "stage_complete"))
	}
	return nil
}

// Await is a no-op: local dispatch is synchronous, so completion is already
// established when Dispatch returns.
func (l *Local) Await(context.Context) error {
	return nil
}
