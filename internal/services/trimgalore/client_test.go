package trimgalore_test

import (
	"context"
	"errors"
	"testing"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/trimgalore"
	"rnaseqpipe/internal/testsupport"
)

func TestArgsPairedGzip(t *testing.T) {
	args := trimgalore.Args(trimgalore.Request{
		Paired:    true,
		Gzip:      true,
		OutputDir: "/out/trimmed_files",
		Inputs:    []string{"/in/s1_1.fastq.gz", "/in/s1_2.fastq.gz"},
	})
	want := []string{"--paired", "--gzip", "-o", "/out/trimmed_files", "/in/s1_1.fastq.gz", "/in/s1_2.fastq.gz"}
	if len(args) != len(want) {
		t.Fatalf("args mismatch: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}
}

func TestArgsSinglePlain(t *testing.T) {
	args := trimgalore.Args(trimgalore.Request{
		OutputDir: "/out/trimmed_files",
		Inputs:    []string{"/in/s1.fastq"},
	})
	if args[0] != "--dont_gzip" {
		t.Fatalf("expected --dont_gzip first, got %v", args)
	}
}

func TestOutputNaming(t *testing.T) {
	if got := trimgalore.TrimmedSingle("/out", "/in/s1.fastq", false); got != "/out/s1_trimmed.fq" {
		t.Fatalf("single plain: %q", got)
	}
	if got := trimgalore.TrimmedSingle("/out", "/in/s1.fastq.gz", true); got != "/out/s1_trimmed.fq.gz" {
		t.Fatalf("single gzip: %q", got)
	}
	m1, m2 := trimgalore.TrimmedPair("/out", "/in/s1_1.fastq.gz", "/in/s1_2.fastq.gz", true)
	if m1 != "/out/s1_1_val_1.fq.gz" || m2 != "/out/s1_2_val_2.fq.gz" {
		t.Fatalf("paired naming: %q %q", m1, m2)
	}
}

func TestRunValidatesPairedInputs(t *testing.T) {
	exec := &testsupport.FakeExecutor{}
	client, err := trimgalore.New("trim_galore", trimgalore.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}
	err = client.Run(context.Background(), trimgalore.Request{
		Paired: true,
		Inputs: []string{"only_one.fastq"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if exec.CallCount() != 0 {
		t.Fatal("no external invocation should happen on validation failure")
	}
}

func TestRunWrapsToolFailure(t *testing.T) {
	exec := &testsupport.FakeExecutor{Err: errors.New("exit status 1"), Stderr: "adapter detection failed"}
	client, err := trimgalore.New("trim_galore", trimgalore.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}
	err = client.Run(context.Background(), trimgalore.Request{Inputs: []string{"s1.fastq"}})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if details := services.Details(err); details.Stderr != "adapter detection failed" {
		t.Fatalf("expected stderr surfaced, got %q", details.Stderr)
	}
}

func TestVersionParsesOutput(t *testing.T) {
	exec := &testsupport.FakeExecutor{Lines: []string{
		"",
		"                        Quality-/Adapter-/RRBS-Trimming",
		"                        version 0.6.10",
		"",
	}}
	client, err := trimgalore.New("trim_galore", trimgalore.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if got != "0.6.10" {
		t.Fatalf("Version = %q, want 0.6.10", got)
	}
}

func TestVersionMissingFromOutput(t *testing.T) {
	exec := &testsupport.FakeExecutor{Lines: []string{"no version line here"}}
	client, err := trimgalore.New("trim_galore", trimgalore.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Version(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Version = %v, want ErrExternalTool", err)
	}
}
