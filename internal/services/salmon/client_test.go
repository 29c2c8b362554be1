package salmon_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/salmon"
	"rnaseqpipe/internal/testsupport"
)

func TestQuantArgs(t *testing.T) {
	got := salmon.QuantArgs(salmon.QuantRequest{
		TranscriptsFasta: "/g/transcripts.fa",
		AlignedBAM:       "/o/s1_Aligned.toTranscriptome.out.bam",
		OutputDir:        "/o/s1/quant",
		Threads:          4,
	})
	want := []string{
		"quant",
		"-t", "/g/transcripts.fa",
		"-l", "A",
		"-a", "/o/s1_Aligned.toTranscriptome.out.bam",
		"-o", "/o/s1/quant",
		"-p", "4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("QuantArgs = %v, want %v", got, want)
	}
}

func TestQuantArgsOmitsThreads(t *testing.T) {
	args := salmon.QuantArgs(salmon.QuantRequest{
		TranscriptsFasta: "t.fa", AlignedBAM: "a.bam", OutputDir: "out",
	})
	for _, arg := range args {
		if arg == "-p" {
			t.Fatalf("thread flag emitted without a thread count: %v", args)
		}
	}
}

func TestQuantFilePath(t *testing.T) {
	if got := salmon.QuantFilePath("/o/s1/quant"); got != "/o/s1/quant/quant.sf" {
		t.Fatalf("QuantFilePath = %q", got)
	}
}

func TestQuantFailure(t *testing.T) {
	exec := &testsupport.FakeExecutor{Err: errors.New("exit status 1"), Stderr: "no alignments"}
	client, err := salmon.New("salmon", salmon.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = client.Quant(context.Background(), salmon.QuantRequest{
		TranscriptsFasta: "t.fa", AlignedBAM: "a.bam", OutputDir: "out",
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Quant = %v, want ErrExternalTool", err)
	}
	if details := services.Details(err); details.Stderr != "no alignments" {
		t.Fatalf("stderr tail not retained: %#v", details)
	}
}
