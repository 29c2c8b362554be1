package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rnaseqpipe/internal/runstore"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/services"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// missingConfig points --config at a nonexistent file so tests always
// run against defaults, never the developer's own config.
func missingConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.toml")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "rnaseqpipe") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestRunRequiresFlags(t *testing.T) {
	_, err := execute(t, "run", "--config", missingConfig(t))
	if err == nil {
		t.Fatal("expected run without flags to fail")
	}
	if !strings.Contains(err.Error(), "required flag") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRejectsBadLibrary(t *testing.T) {
	_, err := execute(t, "run",
		"--config", missingConfig(t),
		"--input", t.TempDir(),
		"--output", t.TempDir(),
		"--reference", "/g.fa",
		"--annotation", "/a.gtf",
		"--library", "both")
	if err == nil || !strings.Contains(err.Error(), "library") {
		t.Fatalf("expected library layout error, got %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("init output does not name the file: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected re-init to refuse overwriting")
	}
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, "config", "show", "--config", missingConfig(t))
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"[tools]", "trim_galore", "[execution]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	tree := runtree.New(dir)
	if err := tree.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	store, err := runstore.Open(tree.RunDBPath())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	run := &runstore.Run{
		ID: "run-abc", InputDir: "/reads", OutputDir: dir,
		Layout: "paired", Compression: "gzip", Target: "queued",
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.AddJob(ctx, "run-abc", "liver1"); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := store.SetJobStatus(ctx, "run-abc", "liver1", runstore.StatusTrimmed); err != nil {
		t.Fatalf("SetJobStatus failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	out, err := execute(t, "status", "--output", dir)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"run-abc", "Running", "liver1", "Trimmed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithoutRuns(t *testing.T) {
	dir := t.TempDir()
	if err := runtree.New(dir).Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if _, err := execute(t, "status", "--output", dir); err == nil {
		t.Fatal("expected status to fail with no recorded runs")
	}
}

func TestPrintErrorIncludesCapturedStderr(t *testing.T) {
	err := services.WithStderr(
		services.Wrap(services.ErrExternalTool, "index", "genomeGenerate",
			"index build failed", errors.New("exit status 1")),
		"EXITING because of FATAL ERROR: not enough memory")

	var buf bytes.Buffer
	printError(&buf, err)
	out := buf.String()
	if !strings.Contains(out, "index build failed") {
		t.Fatalf("message missing from output:\n%s", out)
	}
	if !strings.Contains(out, "FATAL ERROR: not enough memory") {
		t.Fatalf("captured stderr missing from output:\n%s", out)
	}
}

func TestPrintErrorWithoutStderr(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New("plain failure"))
	if got := buf.String(); got != "plain failure\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func installFakeTool(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestToolsCommandAllFound(t *testing.T) {
	bin := t.TempDir()
	for _, name := range []string{"trim_galore", "STAR", "salmon", "gffread", "Rscript", "sbatch"} {
		installFakeTool(t, bin, name)
	}
	t.Setenv("PATH", bin)

	out, err := execute(t, "tools", "--config", missingConfig(t))
	if err != nil {
		t.Fatalf("tools failed: %v", err)
	}
	if !strings.Contains(out, "found") {
		t.Fatalf("tools output missing availability:\n%s", out)
	}
}

func TestToolsCommandFailsOnMissingRequired(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	out, err := execute(t, "tools", "--config", missingConfig(t))
	if err == nil {
		t.Fatal("expected missing required tools to fail the command")
	}
	if !strings.Contains(err.Error(), "Trim Galore") {
		t.Fatalf("error does not name the missing tool: %v", err)
	}
	if !strings.Contains(out, "Tool") {
		t.Fatalf("availability table should still be printed:\n%s", out)
	}
}
