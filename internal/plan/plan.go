// Package plan turns discovered samples into executable job plans. Building
// a plan never runs anything; the four (layout × compression) variants differ
// only in the trimming invocation shape, the aligner decompression flag, and
// output naming.
package plan

import (
	"path/filepath"

	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/samples"
	"rnaseqpipe/internal/services/salmon"
	"rnaseqpipe/internal/services/star"
	"rnaseqpipe/internal/services/trimgalore"
)

// Target selects the execution backend for a job's post-trim steps.
type Target string

const (
	TargetLocal  Target = "local"
	TargetQueued Target = "queued"
)

// Command is one external invocation, held as data so it can either be
// executed in-process or rendered into a submission script.
type Command struct {
	Binary string
	Args   []string
}

// Step is a named stage of a job's post-trim sequence.
type Step struct {
	Stage   string
	Command Command
}

// Job is the per-sample unit handed to the execution backend. It is consumed
// immediately and never persisted.
type Job struct {
	Sample samples.Sample
	Target Target
	// Trim describes the always-local trimming invocation.
	Trim trimgalore.Request
	// Steps are the post-trim stages, in order: align, then optional
	// transcript quantification.
	Steps []Step
	// MarkerPath is the completion marker the aligner writes; its
	// existence is the only completion signal for queued jobs.
	MarkerPath string
	// WorkDir is the per-sample output subdirectory.
	WorkDir string
}

// Inputs carries the run-wide parameters shared by every job plan.
type Inputs struct {
	Tree        runtree.Tree
	Compression samples.Compression
	Target      Target

	STARBinary   string
	SalmonBinary string
	AlignThreads int

	IndexDir string
	// QuantifyTranscripts adds the secondary quantification step and the
	// TranscriptomeSAM quant mode.
	QuantifyTranscripts bool
	TranscriptsFasta    string
}

// Builder constructs job plans and records each expected completion marker
// in the run's CompletionIndex before returning the job.
type Builder struct {
	inputs Inputs
	index  *CompletionIndex
}

// NewBuilder constructs a Builder.
func NewBuilder(inputs Inputs, index *CompletionIndex) *Builder {
	return &Builder{inputs: inputs, index: index}
}

// Build is a pure function of (sample, layout, compression, target) plus run
// parameters; its only side effect is appending the job's marker path to the
// completion index.
func (b *Builder) Build(sample samples.Sample) (*Job, error) {
	in := b.inputs
	gz := in.Compression == samples.CompressionGzip
	trimmedDir := in.Tree.TrimmedFiles()
	prefix := in.Tree.SamplePrefix(sample.ID)

	var reads []string
	switch sample.Layout {
	case samples.LayoutPaired:
		m1, m2 := trimgalore.TrimmedPair(trimmedDir, sample.Files[0], sample.Files[1], gz)
		reads = []string{m1, m2}
	default:
		reads = []string{trimgalore.TrimmedSingle(trimmedDir, sample.Files[0], gz)}
	}

	steps := []Step{{
		Stage: "align",
		Command: Command{
			Binary: in.STARBinary,
			Args: star.AlignArgs(star.AlignRequest{
				IndexDir:           in.IndexDir,
				Reads:              reads,
				Gzip:               gz,
				Threads:            in.AlignThreads,
				OutPrefix:          prefix,
				QuantTranscriptome: in.QuantifyTranscripts,
			}),
		},
	}}

	if in.QuantifyTranscripts {
		steps = append(steps, Step{
			Stage: "quantify",
			Command: Command{
				Binary: in.SalmonBinary,
				Args: salmon.QuantArgs(salmon.QuantRequest{
					TranscriptsFasta: in.TranscriptsFasta,
					AlignedBAM:       star.TranscriptomeBAMPath(prefix),
					OutputDir:        filepath.Join(in.Tree.SampleDir(sample.ID), "quant"),
					Threads:          in.AlignThreads,
				}),
			},
		})
	}

	job := &Job{
		Sample: sample,
		Target: in.Target,
		Trim: trimgalore.Request{
			Paired:    sample.Layout == samples.LayoutPaired,
			Gzip:      gz,
			OutputDir: trimmedDir,
			Inputs:    sample.Files,
		},
		Steps:      steps,
		MarkerPath: star.MarkerPath(prefix),
		WorkDir:    in.Tree.SampleDir(sample.ID),
	}

	if err := b.index.Append(job.MarkerPath); err != nil {
		return nil, err
	}
	return job, nil
}
