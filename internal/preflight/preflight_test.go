package preflight_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rnaseqpipe/internal/deps"
	"rnaseqpipe/internal/preflight"
	"rnaseqpipe/internal/services"
)

func passingInputs(t *testing.T) preflight.Inputs {
	t.Helper()
	ref := filepath.Join(t.TempDir(), "genome.fa")
	if err := os.WriteFile(ref, []byte(">chr1\nACGT\n"), 0o644); err != nil {
		t.Fatalf("write reference: %v", err)
	}
	return preflight.Inputs{
		InputDir:      t.TempDir(),
		OutputDir:     t.TempDir(),
		ReadableFiles: []string{ref},
	}
}

func TestVerifyPasses(t *testing.T) {
	if err := preflight.Verify(passingInputs(t)); err != nil {
		t.Fatalf("Verify failed on a healthy setup: %v", err)
	}
}

func TestVerifyMissingInputDir(t *testing.T) {
	in := passingInputs(t)
	in.InputDir = filepath.Join(t.TempDir(), "does-not-exist")

	err := preflight.Verify(in)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Verify = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "Input directory") {
		t.Fatalf("error does not name the failed check: %v", err)
	}
}

func TestVerifyUnreadableReference(t *testing.T) {
	in := passingInputs(t)
	in.ReadableFiles = append(in.ReadableFiles, filepath.Join(t.TempDir(), "missing.gtf"))

	if err := preflight.Verify(in); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Verify = %v, want ErrConfiguration", err)
	}
}

func TestVerifyInputDirIsFile(t *testing.T) {
	in := passingInputs(t)
	file := filepath.Join(t.TempDir(), "reads.fastq")
	if err := os.WriteFile(file, []byte("@r\nA\n+\nF\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	in.InputDir = file

	err := preflight.Verify(in)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("Verify = %v, want not-a-directory failure", err)
	}
}

func TestRunAllReportsBinaries(t *testing.T) {
	in := passingInputs(t)
	in.Requirements = []deps.Requirement{
		{Name: "Missing tool", Command: "definitely-not-on-path-xyz"},
		{Name: "Skipped optional", Command: "also-not-on-path", Optional: true},
	}

	results := preflight.RunAll(in)
	var sawMissing, sawOptional bool
	for _, r := range results {
		switch r.Name {
		case "Missing tool":
			sawMissing = true
			if r.Passed {
				t.Error("missing binary reported as passed")
			}
		case "Skipped optional":
			sawOptional = true
		}
	}
	if !sawMissing {
		t.Error("required binary check missing from results")
	}
	if sawOptional {
		t.Error("unavailable optional binary should be skipped, not reported")
	}
}

func TestFreeSpaceCheck(t *testing.T) {
	in := passingInputs(t)
	in.MinFreeGiB = 1 << 40 // absurd floor, must fail

	err := preflight.Verify(in)
	if err == nil || !strings.Contains(err.Error(), "free space") {
		t.Fatalf("Verify = %v, want free-space failure", err)
	}
}
