package runtree_test

import (
	"os"
	"path/filepath"
	"testing"

	"rnaseqpipe/internal/runtree"
)

func TestEnsureCreatesFixedLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	tree := runtree.New(root)
	if err := tree.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{"Logs", "genome", "trimmed_files", "STAR_aln"} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing directory %s: %v", dir, err)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	tree := runtree.New("/out")
	if got := tree.SamplePrefix("s1"); got != "/out/STAR_aln/s1/s1_" {
		t.Fatalf("prefix: %q", got)
	}
	if got := tree.CompletionIndexPath(); got != "/out/STAR_aln/index" {
		t.Fatalf("completion index: %q", got)
	}
	if got := tree.IndexDir(); got != "/out/genome/index" {
		t.Fatalf("index dir: %q", got)
	}
	if got := tree.TranscriptsFasta(); got != "/out/genome/transcripts.fa" {
		t.Fatalf("transcripts: %q", got)
	}
}
