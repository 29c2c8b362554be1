package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with placeholder content, creating parent
// directories as needed.
func WriteFile(t testing.TB, path string, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if content == "" {
		content = "@read\nACGT\n+\nFFFF\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadDir creates a directory populated with the given read file names and
// returns its path.
func ReadDir(t testing.TB, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		WriteFile(t, filepath.Join(dir, name), "")
	}
	return dir
}
