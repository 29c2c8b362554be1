package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"rnaseqpipe/internal/backend"
	"rnaseqpipe/internal/config"
	"rnaseqpipe/internal/plan"
	"rnaseqpipe/internal/runstore"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/samples"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
	"rnaseqpipe/internal/testsupport"
	"rnaseqpipe/internal/workflow"
)

// installTools populates a fake bin directory so the binary preflight
// passes, and points PATH at it.
func installTools(t *testing.T) {
	t.Helper()
	bin := t.TempDir()
	for _, name := range []string{"trim_galore", "STAR", "salmon", "gffread", "Rscript", "sbatch"} {
		if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("install %s: %v", name, err)
		}
	}
	t.Setenv("PATH", bin)
}

func testConfig(t *testing.T) *config.Config {
	return testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Preflight.MinFreeGiB = 0
	})
}

func writeReference(t *testing.T) (genome, annotation string) {
	t.Helper()
	dir := t.TempDir()
	genome = filepath.Join(dir, "genome.fa")
	annotation = filepath.Join(dir, "ann.gtf")
	testsupport.WriteFile(t, genome, ">chr1\nACGT\n")
	testsupport.WriteFile(t, annotation, "chr1\tsrc\texon\t1\t4\t.\t+\t.\tgene_id \"g1\";\n")
	return genome, annotation
}

// alignEffects simulates the aligner's output files when the fake
// executor sees an alignReads invocation.
func alignEffects(t *testing.T) func(inv testsupport.Invocation) (runner.Result, error) {
	t.Helper()
	return func(inv testsupport.Invocation) (runner.Result, error) {
		for i, arg := range inv.Args {
			if arg == "--outFileNamePrefix" && i+1 < len(inv.Args) {
				prefix := inv.Args[i+1]
				testsupport.WriteFile(t, prefix+"Log.final.out", "done\n")
				testsupport.WriteFile(t, prefix+"ReadsPerGene.out.tab", "g1\t5\t5\t5\n")
			}
		}
		return runner.Result{}, nil
	}
}

func TestRunLocalEndToEnd(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)

	exec := &testsupport.FakeExecutor{OnRun: alignEffects(t)}
	out := t.TempDir()
	req := workflow.Request{
		InputDir:   testsupport.ReadDir(t, "s1.fastq"),
		OutputDir:  out,
		Genome:     genome,
		Annotation: annotation,
		Layout:     samples.LayoutSingle,
	}

	orch := workflow.New(cfg, nil, workflow.WithExecutor(exec))
	if err := orch.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tree := runtree.New(out)
	markers, err := plan.ReadMarkers(tree.CompletionIndexPath())
	if err != nil {
		t.Fatalf("ReadMarkers failed: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("completion index has %d entries, want 1", len(markers))
	}

	store, err := runstore.Open(tree.RunDBPath())
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	defer store.Close()
	run, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if run.Status != runstore.RunCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
	jobs, err := store.Jobs(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Jobs failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != runstore.StatusCompleted {
		t.Fatalf("unexpected jobs: %#v", jobs)
	}

	// Index build, trim, align, Rscript: four tool invocations, in order.
	calls := exec.Calls()
	if len(calls) != 4 {
		t.Fatalf("executor saw %d calls, want 4: %#v", len(calls), calls)
	}
	if calls[0].Binary != "STAR" || calls[0].Args[1] != "genomeGenerate" {
		t.Errorf("first call should build the index, got %#v", calls[0])
	}
	if calls[len(calls)-1].Binary != "Rscript" {
		t.Errorf("last call should collate, got %#v", calls[len(calls)-1])
	}
}

func TestRunQueuedEndToEnd(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)
	out := t.TempDir()
	tree := runtree.New(out)

	exec := &testsupport.FakeExecutor{}
	exec.OnRun = func(inv testsupport.Invocation) (runner.Result, error) {
		if inv.Binary != "sbatch" {
			return runner.Result{}, nil
		}
		// The queued backend only ever observes markers appearing.
		markers, err := plan.ReadMarkers(tree.CompletionIndexPath())
		if err != nil {
			return runner.Result{}, err
		}
		for _, marker := range markers {
			testsupport.WriteFile(t, marker, "done\n")
		}
		return runner.Result{}, nil
	}

	req := workflow.Request{
		InputDir:   testsupport.ReadDir(t, "s1_1.fastq.gz", "s1_2.fastq.gz"),
		OutputDir:  out,
		Genome:     genome,
		Annotation: annotation,
		Layout:     samples.LayoutPaired,
		Cluster:    true,
	}

	orch := workflow.New(cfg, nil,
		workflow.WithExecutor(exec),
		workflow.WithQueuedOptions(backend.WithTimings(0, 5*time.Millisecond, time.Minute)))
	err := orch.Run(context.Background(), req)
	if err == nil {
		t.Fatal("expected collation to fail: queued fakes produce no count tables")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Run = %v, want collation ErrNotFound", err)
	}

	// Everything before collation must have succeeded.
	store, serr := runstore.Open(tree.RunDBPath())
	if serr != nil {
		t.Fatalf("open run store: %v", serr)
	}
	defer store.Close()
	run, rerr := store.LatestRun(context.Background())
	if rerr != nil {
		t.Fatalf("LatestRun failed: %v", rerr)
	}
	if run.Status != runstore.RunFailed {
		t.Fatalf("run status = %s, want failed (collation)", run.Status)
	}
	jobs, jerr := store.Jobs(context.Background(), run.ID)
	if jerr != nil {
		t.Fatalf("Jobs failed: %v", jerr)
	}
	if len(jobs) != 1 || jobs[0].Status != runstore.StatusCompleted {
		t.Fatalf("queued job should complete via markers: %#v", jobs)
	}
}

func TestRunQueuedProducesCounts(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)
	out := t.TempDir()
	tree := runtree.New(out)

	exec := &testsupport.FakeExecutor{}
	exec.OnRun = func(inv testsupport.Invocation) (runner.Result, error) {
		if inv.Binary != "sbatch" {
			return runner.Result{}, nil
		}
		markers, err := plan.ReadMarkers(tree.CompletionIndexPath())
		if err != nil {
			return runner.Result{}, err
		}
		for _, marker := range markers {
			testsupport.WriteFile(t, marker, "done\n")
			counts := strings.TrimSuffix(marker, "Log.final.out") + "ReadsPerGene.out.tab"
			testsupport.WriteFile(t, counts, "g1\t5\t5\t5\n")
		}
		return runner.Result{}, nil
	}

	req := workflow.Request{
		InputDir:   testsupport.ReadDir(t, "s1.fastq", "s2.fastq"),
		OutputDir:  out,
		Genome:     genome,
		Annotation: annotation,
		Layout:     samples.LayoutSingle,
		Cluster:    true,
	}

	orch := workflow.New(cfg, nil,
		workflow.WithExecutor(exec),
		workflow.WithQueuedOptions(backend.WithTimings(0, 5*time.Millisecond, time.Minute)))
	if err := orch.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	markers, err := plan.ReadMarkers(tree.CompletionIndexPath())
	if err != nil {
		t.Fatalf("ReadMarkers failed: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("completion index has %d entries, want 2", len(markers))
	}
}

func TestRunValidation(t *testing.T) {
	cfg := testConfig(t)
	exec := &testsupport.FakeExecutor{}
	orch := workflow.New(cfg, nil, workflow.WithExecutor(exec))

	err := orch.Run(context.Background(), workflow.Request{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
		Layout:    samples.LayoutSingle,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Run = %v, want ErrValidation", err)
	}

	err = orch.Run(context.Background(), workflow.Request{
		InputDir:        t.TempDir(),
		OutputDir:       t.TempDir(),
		Genome:          "/g.fa",
		Annotation:      "/a.gtf",
		Layout:          samples.LayoutSingle,
		TranscriptLevel: true,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("transcript-level without quantification = %v, want ErrValidation", err)
	}

	if exec.CallCount() != 0 {
		t.Fatalf("validation failures must not invoke tools, saw %d calls", exec.CallCount())
	}
}

func TestRunTrimFailureFailsJobAndRun(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)
	out := t.TempDir()

	exec := &testsupport.FakeExecutor{}
	exec.OnRun = func(inv testsupport.Invocation) (runner.Result, error) {
		if inv.Binary == "trim_galore" {
			return runner.Result{Stderr: "adapter detection failed"}, errors.New("exit status 1")
		}
		return runner.Result{}, nil
	}

	req := workflow.Request{
		InputDir:   testsupport.ReadDir(t, "s1.fastq"),
		OutputDir:  out,
		Genome:     genome,
		Annotation: annotation,
		Layout:     samples.LayoutSingle,
	}
	err := workflow.New(cfg, nil, workflow.WithExecutor(exec)).Run(context.Background(), req)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Run = %v, want ErrExternalTool", err)
	}

	store, serr := runstore.Open(runtree.New(out).RunDBPath())
	if serr != nil {
		t.Fatalf("open run store: %v", serr)
	}
	defer store.Close()
	run, rerr := store.LatestRun(context.Background())
	if rerr != nil {
		t.Fatalf("LatestRun failed: %v", rerr)
	}
	if run.Status != runstore.RunFailed || run.Error == "" {
		t.Fatalf("unexpected run record: %#v", run)
	}
	jobs, jerr := store.Jobs(context.Background(), run.ID)
	if jerr != nil {
		t.Fatalf("Jobs failed: %v", jerr)
	}
	if len(jobs) != 1 || jobs[0].Status != runstore.StatusFailed {
		t.Fatalf("unexpected jobs: %#v", jobs)
	}
}

func TestRunRefusesLockedTree(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)
	out := t.TempDir()
	tree := runtree.New(out)
	if err := tree.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	held := flock.New(tree.LockPath())
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not pre-acquire lock: %v", err)
	}
	defer held.Unlock()

	req := workflow.Request{
		InputDir:   testsupport.ReadDir(t, "s1.fastq"),
		OutputDir:  out,
		Genome:     genome,
		Annotation: annotation,
		Layout:     samples.LayoutSingle,
	}
	err = workflow.New(cfg, nil, workflow.WithExecutor(&testsupport.FakeExecutor{})).
		Run(context.Background(), req)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Run = %v, want ErrConfiguration for held lock", err)
	}
}

func TestRunTrimmerVersionPin(t *testing.T) {
	installTools(t)
	genome, annotation := writeReference(t)
	cfg := testConfig(t)

	exec := &testsupport.FakeExecutor{Lines: []string{"", "        Quality-/Adapter-Trimming", "        version 0.6.10", ""}}
	req := workflow.Request{
		InputDir:          testsupport.ReadDir(t, "s1.fastq"),
		OutputDir:         t.TempDir(),
		Genome:            genome,
		Annotation:        annotation,
		Layout:            samples.LayoutSingle,
		TrimGaloreVersion: "0.6.7",
	}
	err := workflow.New(cfg, nil, workflow.WithExecutor(exec)).Run(context.Background(), req)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Run = %v, want ErrConfiguration for version mismatch", err)
	}
	if !strings.Contains(err.Error(), "0.6.10") {
		t.Fatalf("error does not report the found version: %v", err)
	}
}
