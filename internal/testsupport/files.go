package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteAsset writes content to rel under root and sets its mtime. A zero
// mtime leaves the filesystem timestamp alone.
func WriteAsset(t testing.TB, root, rel, content string, mtime time.Time) string {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", full, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", full, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(full, mtime, mtime); err != nil {
			t.Fatalf("chtimes %s: %v", full, err)
		}
	}
	return full
}
