package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteMediaFile drops a small placeholder media file at path so dispatch
// tests pass the file-existence gate.
func WriteMediaFile(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("ID3 placeholder audio"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MediaFile creates a placeholder media file inside a temp dir and returns
// its path.
func MediaFile(t testing.TB, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	WriteMediaFile(t, path)
	return path
}
