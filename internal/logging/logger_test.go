package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"rnaseqpipe/internal/services"
)

func TestConsoleHandlerFormatsSampleAndStage(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithSample(context.Background(), "s1")
	ctx = services.WithStage(ctx, "align")
	WithContext(ctx, NewComponentLogger(logger, "backend")).Info("stage started", String("target", "local"))

	out := buf.String()
	for _, want := range []string{"[backend]", "s1/align", "stage started", "target=local"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

func TestJSONHandlerLowercasesLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl))
	logger.Warn("delayed", String("reason", "queue"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["msg"] != "delayed" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("unexpected level: %v", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestGroupAttrsAreFlattened(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))
	logger.Info("built", slog.Group("index", String("dir", "/tmp/index")))
	if !strings.Contains(buf.String(), "index.dir=/tmp/index") {
		t.Fatalf("expected flattened group key, got %q", buf.String())
	}
}
