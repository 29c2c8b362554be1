package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"rnaseqpipe/internal/backend"
	"rnaseqpipe/internal/collate"
	"rnaseqpipe/internal/config"
	"rnaseqpipe/internal/deps"
	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/plan"
	"rnaseqpipe/internal/preflight"
	"rnaseqpipe/internal/refindex"
	"rnaseqpipe/internal/runstore"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/samples"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/gffread"
	"rnaseqpipe/internal/services/rscript"
	"rnaseqpipe/internal/services/runner"
	"rnaseqpipe/internal/services/slurm"
	"rnaseqpipe/internal/services/star"
	"rnaseqpipe/internal/services/trimgalore"
)

// Request describes one run. It is immutable once handed to Run.
type Request struct {
	InputDir   string
	OutputDir  string
	Genome     string
	Annotation string
	Layout     samples.Layout

	// Cluster dispatches post-trim steps to the batch queue instead of
	// running them in-process.
	Cluster bool
	// QuantifyTranscripts adds the per-sample transcript quantification
	// step after alignment.
	QuantifyTranscripts bool
	// TranscriptLevel collates the quantifier's transcript tables
	// instead of the aligner's gene counts. Requires
	// QuantifyTranscripts.
	TranscriptLevel bool
	// BuildTranscriptome extracts the transcript sequence file during
	// reference preparation even when quantification is off.
	BuildTranscriptome bool
	// TrimGaloreVersion, when set, requires the installed trimmer to
	// report exactly this version.
	TrimGaloreVersion string
}

func (r Request) validate() error {
	required := map[string]string{
		"input directory":  r.InputDir,
		"output directory": r.OutputDir,
		"reference genome": r.Genome,
		"annotation":       r.Annotation,
	}
	for name, value := range required {
		if value == "" {
			return services.Wrap(services.ErrValidation, "workflow", "validate",
				name+" is required", nil)
		}
	}
	if r.TranscriptLevel && !r.QuantifyTranscripts {
		return services.Wrap(services.ErrValidation, "workflow", "validate",
			"transcript-level collation requires transcript quantification", nil)
	}
	return nil
}

// Orchestrator runs the pipeline stages in order for one request at a
// time.
type Orchestrator struct {
	cfg        *config.Config
	log        *slog.Logger
	exec       runner.Executor
	queuedOpts []backend.QueuedOption
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor injects the executor used by every tool client
// (primarily for tests).
func WithExecutor(exec runner.Executor) Option {
	return func(o *Orchestrator) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithQueuedOptions forwards options to the queued backend.
func WithQueuedOptions(opts ...backend.QueuedOption) Option {
	return func(o *Orchestrator) {
		o.queuedOpts = append(o.queuedOpts, opts...)
	}
}

// New constructs an Orchestrator.
func New(cfg *config.Config, log *slog.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:  cfg,
		log:  logging.NewComponentLogger(log, "workflow"),
		exec: runner.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one request end to end. Any error aborts the run; the
// run record, when one was created, is marked failed with the reason.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}

	tree := runtree.New(req.OutputDir)
	if err := tree.Ensure(); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "init",
			"creating output tree", err)
	}

	lock := flock.New(tree.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "lock",
			"acquiring run lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "workflow", "lock",
			fmt.Sprintf("another run is already using %s", tree.Root), nil)
	}
	defer func() { _ = lock.Unlock() }()

	// Everything from here on may invoke external tools, so the checks
	// and the catalog come first.
	requirements := deps.Requirements(o.cfg, req.Cluster, req.QuantifyTranscripts, true)
	err = preflight.Verify(preflight.Inputs{
		InputDir:      req.InputDir,
		OutputDir:     tree.Root,
		ReadableFiles: []string{req.Genome, req.Annotation},
		Requirements:  requirements,
		MinFreeGiB:    uint64(o.cfg.Preflight.MinFreeGiB),
	})
	if err != nil {
		return err
	}

	catalog, err := samples.Discover(req.InputDir, req.Layout)
	if err != nil {
		return err
	}

	clients, err := o.newClients()
	if err != nil {
		return err
	}
	if req.TrimGaloreVersion != "" {
		if err := checkTrimmerVersion(ctx, clients.trim, req.TrimGaloreVersion); err != nil {
			return err
		}
	}

	store, err := runstore.Open(tree.RunDBPath())
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "store",
			"opening run database", err)
	}
	defer func() { _ = store.Close() }()

	target := plan.TargetLocal
	if req.Cluster {
		target = plan.TargetQueued
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	log := o.log.With(logging.FieldRunID, runID)
	log.Info("run starting",
		slog.String("input", req.InputDir),
		slog.String("output", tree.Root),
		slog.String("layout", string(req.Layout)),
		slog.String("compression", string(catalog.Compression)),
		slog.String("target", string(target)),
		slog.Int("samples", len(catalog.Samples)))

	run := &runstore.Run{
		ID:          runID,
		InputDir:    req.InputDir,
		OutputDir:   tree.Root,
		Layout:      string(req.Layout),
		Compression: string(catalog.Compression),
		Target:      string(target),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "store",
			"recording run", err)
	}

	if err := o.execute(ctx, req, tree, catalog, clients, store, runID, target, log); err != nil {
		if ferr := store.FinishRun(context.Background(), runID, runstore.RunFailed, err.Error()); ferr != nil {
			log.Warn("recording run failure", logging.Error(ferr))
		}
		return err
	}
	if err := store.FinishRun(ctx, runID, runstore.RunCompleted, ""); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "store",
			"recording run completion", err)
	}
	log.Info("run complete")
	return nil
}

// execute runs the stages that happen inside a recorded run: reference
// preparation, per-sample trim/dispatch, completion await, collation.
func (o *Orchestrator) execute(
	ctx context.Context,
	req Request,
	tree runtree.Tree,
	catalog *samples.Catalog,
	clients *toolClients,
	store *runstore.Store,
	runID string,
	target plan.Target,
	log *slog.Logger,
) error {
	refResult, err := refindex.New(tree, clients.gffread, clients.star, o.cfg.Index, log).
		Prepare(ctx, refindex.Reference{
			GenomePath:         req.Genome,
			AnnotationPath:     req.Annotation,
			ExtractTranscripts: req.QuantifyTranscripts || req.BuildTranscriptome,
		})
	if err != nil {
		return err
	}

	index, err := plan.NewCompletionIndex(tree.CompletionIndexPath())
	if err != nil {
		return err
	}
	builder := plan.NewBuilder(plan.Inputs{
		Tree:                tree,
		Compression:         catalog.Compression,
		Target:              target,
		STARBinary:          o.cfg.Tools.STAR,
		SalmonBinary:        o.cfg.Tools.Salmon,
		AlignThreads:        o.cfg.Align.Threads,
		IndexDir:            refResult.IndexDir,
		QuantifyTranscripts: req.QuantifyTranscripts,
		TranscriptsFasta:    refResult.TranscriptsFasta,
	}, index)

	var be backend.Backend
	if target == plan.TargetQueued {
		be = backend.NewQueued(clients.trim, clients.slurm, tree, o.cfg, log, o.queuedOpts...)
	} else {
		be = backend.NewLocal(clients.trim, o.exec, log)
	}

	for _, sample := range catalog.Samples {
		if err := store.AddJob(ctx, runID, sample.ID); err != nil {
			return services.Wrap(services.ErrConfiguration, "workflow", "store",
				"recording job", err)
		}
	}

	for _, sample := range catalog.Samples {
		if err := o.runSample(ctx, sample, builder, be, store, runID, target); err != nil {
			return err
		}
	}

	if err := be.Await(ctx); err != nil {
		return err
	}
	if target == plan.TargetQueued {
		for _, sample := range catalog.Samples {
			if err := store.SetJobStatus(ctx, runID, sample.ID, runstore.StatusCompleted); err != nil {
				return services.Wrap(services.ErrConfiguration, "workflow", "store",
					"recording job completion", err)
			}
		}
	}

	level := collate.GeneLevel
	if req.TranscriptLevel {
		level = collate.TranscriptLevel
	}
	return collate.New(tree, clients.rscript, log).Run(ctx, level)
}

func (o *Orchestrator) runSample(
	ctx context.Context,
	sample samples.Sample,
	builder *plan.Builder,
	be backend.Backend,
	store *runstore.Store,
	runID string,
	target plan.Target,
) error {
	ctx = services.WithSample(ctx, sample.ID)
	fail := func(err error) error {
		if ferr := store.FailJob(context.Background(), runID, sample.ID, err.Error()); ferr != nil {
			o.log.Warn("recording job failure", logging.Error(ferr))
		}
		return err
	}

	job, err := builder.Build(sample)
	if err != nil {
		return fail(err)
	}
	if err := be.Trim(ctx, job); err != nil {
		return fail(err)
	}
	if err := store.SetJobStatus(ctx, runID, sample.ID, runstore.StatusTrimmed); err != nil {
		return fail(err)
	}

	if target == plan.TargetLocal {
		if err := store.SetJobStatus(ctx, runID, sample.ID, runstore.StatusExecuting); err != nil {
			return fail(err)
		}
		if err := be.Dispatch(ctx, job); err != nil {
			return fail(err)
		}
		if err := store.SetJobStatus(ctx, runID, sample.ID, runstore.StatusCompleted); err != nil {
			return fail(err)
		}
		return nil
	}

	// Queued: submitted is recorded only after a successful queue
	// handoff.
	if err := be.Dispatch(ctx, job); err != nil {
		return fail(err)
	}
	if err := store.SetJobStatus(ctx, runID, sample.ID, runstore.StatusSubmitted); err != nil {
		return fail(err)
	}
	return nil
}

// toolClients bundles the external tool clients for one run.
type toolClients struct {
	trim    *trimgalore.Client
	star    *star.Client
	gffread *gffread.Client
	slurm   *slurm.Client
	rscript *rscript.Client
}

func (o *Orchestrator) newClients() (*toolClients, error) {
	tools := o.cfg.Tools
	trim, err := trimgalore.New(tools.TrimGalore, trimgalore.WithExecutor(o.exec))
	if err != nil {
		return nil, err
	}
	starClient, err := star.New(tools.STAR, star.WithExecutor(o.exec))
	if err != nil {
		return nil, err
	}
	gffreadClient, err := gffread.New(tools.Gffread, gffread.WithExecutor(o.exec))
	if err != nil {
		return nil, err
	}
	slurmClient, err := slurm.New(tools.Sbatch, slurm.WithExecutor(o.exec))
	if err != nil {
		return nil, err
	}
	rscriptClient, err := rscript.New(tools.Rscript, rscript.WithExecutor(o.exec))
	if err != nil {
		return nil, err
	}
	return &toolClients{
		trim:    trim,
		star:    starClient,
		gffread: gffreadClient,
		slurm:   slurmClient,
		rscript: rscriptClient,
	}, nil
}

func checkTrimmerVersion(ctx context.Context, trim *trimgalore.Client, want string) error {
	got, err := trim.Version(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return services.Wrap(services.ErrConfiguration, "workflow", "trim_version",
			fmt.Sprintf("trim_galore version %s found, %s required", got, want), nil)
	}
	return nil
}
