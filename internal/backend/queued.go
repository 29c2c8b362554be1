package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rnaseqpipe/internal/config"
	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/plan"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/slurm"
	"rnaseqpipe/internal/services/trimgalore"
)

// Queued materializes post-trim steps as a submission script, hands it to the
// batch queue, and later confirms completion by polling for markers listed in
// the run's completion index.
type Queued struct {
	trimRunner
	slurm *slurm.Client
	tree  runtree.Tree

	resources config.Slurm
	delay     time.Duration
	poll      time.Duration
	// awaitTimeout bounds Await; zero waits forever. A queued job that
	// fails on the cluster never writes its marker, so an unbounded wait
	// can block indefinitely.
	awaitTimeout time.Duration

	logger *slog.Logger
}

// QueuedOption configures the queued backend.
type QueuedOption func(*Queued)

// WithTimings overrides the dispatch delay, poll interval, and await timeout
// (primarily for tests).
func WithTimings(delay, poll, awaitTimeout time.Duration) QueuedOption {
	return func(q *Queued) {
		q.delay = delay
		if poll > 0 {
			q.poll = poll
		}
		q.awaitTimeout = awaitTimeout
	}
}

// NewQueued constructs the batch-queue backend.
func NewQueued(trim *trimgalore.Client, slurmClient *slurm.Client, tree runtree.Tree, cfg *config.Config, logger *slog.Logger, opts ...QueuedOption) *Queued {
	q := &Queued{
		trimRunner:   trimRunner{trim: trim},
		slurm:        slurmClient,
		tree:         tree,
		resources:    cfg.Slurm,
		delay:        time.Duration(cfg.Execution.SubmissionDelaySeconds) * time.Second,
		poll:         time.Duration(cfg.Execution.PollIntervalSeconds) * time.Second,
		awaitTimeout: time.Duration(cfg.Execution.AwaitTimeoutMinutes) * time.Minute,
		logger:       logging.NewComponentLogger(logger, "backend.queued"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Dispatch writes a self-contained submission script, submits it, delays
// briefly to avoid flooding the queue's admission path, and deletes the local
// script copy. Submission failure is fatal; success only means accepted.
func (q *Queued) Dispatch(ctx context.Context, job *plan.Job) error {
	logger := logging.WithContext(logging.WithSample(ctx, job.Sample.ID), q.logger)

	scriptPath := filepath.Join(q.tree.Logs(), job.Sample.ID+"_submit.sh")
	script := q.buildScript(job)
	if err := os.WriteFile(scriptPath, []byte(script.Render()), 0o755); err != nil {
		return fmt.Errorf("write submission script: %w", err)
	}

	if err := q.slurm.Submit(ctx, scriptPath); err != nil {
		return err
	}
	logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("marker", job.MarkerPath))

	if q.delay > 0 {
		select {
		case <-time.After(q.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// The script is self-contained once accepted by the queue.
	if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not delete submission script", logging.Error(err))
	}
	return nil
}

func (q *Queued) buildScript(job *plan.Job) slurm.Script {
	commands := []string{
		slurm.QuoteCommand("mkdir", []string{"-p", job.WorkDir}),
		slurm.QuoteCommand("cd", []string{job.WorkDir}),
	}
	for _, step := range job.Steps {
		commands = append(commands, slurm.QuoteCommand(step.Command.Binary, step.Command.Args))
	}
	return slurm.Script{
		JobName:     "rnaseq-" + job.Sample.ID,
		Partition:   q.resources.Partition,
		Time:        q.resources.Time,
		Mem:         q.resources.Mem,
		CPUsPerTask: q.resources.CPUsPerTask,
		LogPath:     filepath.Join(q.tree.Logs(), job.Sample.ID+".%j.out"),
		Commands:    commands,
	}
}

// Await polls the filesystem at a fixed interval, comparing present markers
// against the completion index total, and returns once they match. With a
// configured timeout it gives up with a timeout error instead of polling
// forever past a silently failed cluster job.
func (q *Queued) Await(ctx context.Context) error {
	markers, err := plan.ReadMarkers(q.tree.CompletionIndexPath())
	if err != nil {
		return err
	}
	expected := len(markers)
	if expected == 0 {
		return nil
	}

	if q.awaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.awaitTimeout)
		defer cancel()
	}

	logger := logging.WithContext(logging.WithStage(ctx, "await"), q.logger)
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		present := countPresent(markers)
		if present >= expected {
			logger.Info("all jobs complete", logging.Int("expected", expected))
			return nil
		}
		logger.Info("waiting for queued jobs",
			logging.Int("complete", present),
			logging.Int("expected", expected))

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return services.Wrap(services.ErrTimeout, "await", "poll",
					fmt.Sprintf("%d of %d jobs complete after %s", present, expected, q.awaitTimeout), nil)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func countPresent(markers []string) int {
	present := 0
	for _, marker := range markers {
		if _, err := os.Stat(marker); err == nil {
			present++
		}
	}
	return present
}
