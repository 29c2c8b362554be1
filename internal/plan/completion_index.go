package plan

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompletionIndex is the append-only on-disk list of expected completion
// marker paths, one per line. It is written during job-graph construction and
// read-only during polling.
type CompletionIndex struct {
	path  string
	count int
}

// NewCompletionIndex truncates any prior index at path and returns an empty
// one for this run.
func NewCompletionIndex(path string) (*CompletionIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create completion index directory: %w", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("initialize completion index: %w", err)
	}
	return &CompletionIndex{path: path}, nil
}

// Append records one expected marker path.
func (ci *CompletionIndex) Append(markerPath string) error {
	f, err := os.OpenFile(ci.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open completion index: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, markerPath); err != nil {
		return fmt.Errorf("append completion marker: %w", err)
	}
	ci.count++
	return nil
}

// Expected returns the number of markers appended during this run.
func (ci *CompletionIndex) Expected() int {
	return ci.count
}

// Path returns the on-disk location of the index.
func (ci *CompletionIndex) Path() string {
	return ci.path
}

// ReadMarkers loads the expected marker paths from an index file.
func ReadMarkers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open completion index: %w", err)
	}
	defer f.Close()

	var markers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		markers = append(markers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read completion index: %w", err)
	}
	return markers, nil
}

// SampleIDFromMarker recovers the sample identifier from a completion marker
// path. Deriving an ID from a marker built for that ID is idempotent.
func SampleIDFromMarker(markerPath string) string {
	base := filepath.Base(markerPath)
	return strings.TrimSuffix(base, "_Log.final.out")
}
