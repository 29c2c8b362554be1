// Package runtree defines the fixed output directory layout of a run. The
// tree is created once at initialization and never restructured mid-run.
package runtree

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	logsDir    = "Logs"
	genomeDir  = "genome"
	trimmedDir = "trimmed_files"
	alnDir     = "STAR_aln"

	indexDirName     = "index"
	completionIndex  = "index"
	transcriptsFasta = "transcripts.fa"
)

// Tree holds the root of a run's output directory.
type Tree struct {
	Root string
}

// New returns a Tree rooted at root.
func New(root string) Tree {
	return Tree{Root: root}
}

// Ensure creates the fixed directory layout.
func (t Tree) Ensure() error {
	for _, dir := range []string{t.Logs(), t.Genome(), t.TrimmedFiles(), t.Aln()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Logs returns the run log directory.
func (t Tree) Logs() string { return filepath.Join(t.Root, logsDir) }

// Genome returns the directory holding the linked reference, annotation,
// built index, and optional transcriptome sequence.
func (t Tree) Genome() string { return filepath.Join(t.Root, genomeDir) }

// TrimmedFiles returns the trimmed read output directory.
func (t Tree) TrimmedFiles() string { return filepath.Join(t.Root, trimmedDir) }

// Aln returns the alignment output directory.
func (t Tree) Aln() string { return filepath.Join(t.Root, alnDir) }

// SampleDir returns the per-sample alignment subdirectory, which isolates
// each sample's outputs from every other sample's.
func (t Tree) SampleDir(sampleID string) string {
	return filepath.Join(t.Aln(), sampleID)
}

// SamplePrefix returns the STAR output prefix for a sample.
func (t Tree) SamplePrefix(sampleID string) string {
	return filepath.Join(t.SampleDir(sampleID), sampleID+"_")
}

// IndexDir returns the STAR index directory under the genome tree.
func (t Tree) IndexDir() string { return filepath.Join(t.Genome(), indexDirName) }

// CompletionIndexPath returns the append-only file listing expected
// completion-marker paths, one per line.
func (t Tree) CompletionIndexPath() string { return filepath.Join(t.Aln(), completionIndex) }

// TranscriptsFasta returns the extracted transcript sequence file path.
func (t Tree) TranscriptsFasta() string { return filepath.Join(t.Genome(), transcriptsFasta) }

// RunDBPath returns the SQLite run-state database path.
func (t Tree) RunDBPath() string { return filepath.Join(t.Logs(), "run.db") }

// LockPath returns the run lock file path.
func (t Tree) LockPath() string { return filepath.Join(t.Logs(), "rnaseqpipe.lock") }

// LogFilePath returns the orchestrator log file path.
func (t Tree) LogFilePath() string { return filepath.Join(t.Logs(), "rnaseqpipe.log") }
