package manifest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assetcdn/internal/assets"
	"assetcdn/internal/manifest"
	"assetcdn/internal/pipeline"
	"assetcdn/internal/staleness"
)

func TestShouldSkip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	if skip, err := manifest.ShouldSkip(path); err != nil || skip {
		t.Fatalf("missing file: skip=%v err=%v", skip, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if skip, _ := manifest.ShouldSkip(path); skip {
		t.Fatal("empty file should not short-circuit")
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if skip, _ := manifest.ShouldSkip(path); !skip {
		t.Fatal("non-empty file should short-circuit")
	}
	if skip, _ := manifest.ShouldSkip(dir); skip {
		t.Fatal("directories should not short-circuit")
	}
	if skip, _ := manifest.ShouldSkip(""); skip {
		t.Fatal("unset path should not short-circuit")
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")
	outcomes := []pipeline.Outcome{
		{Request: assets.Single("a.js"), FileName: "a.js", Key: "a.js", Decision: staleness.Republish, Published: true, Attempts: 1},
		{Request: assets.Single("b.js"), FileName: "b.js", Key: "b.js", Decision: staleness.Skip},
	}
	m := manifest.New("run-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), outcomes)

	if err := manifest.Write(path, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the manifest on disk, found %d entries", len(entries))
	}

	loaded, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RunID != "run-1" || len(loaded.Outcomes) != 2 {
		t.Fatalf("unexpected manifest %+v", loaded)
	}
	if loaded.Summary.Published != 1 || loaded.Summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", loaded.Summary)
	}
	if skip, _ := manifest.ShouldSkip(path); !skip {
		t.Fatal("written manifest should short-circuit")
	}
}

func TestLockIsExclusive(t *testing.T) {
	path := manifest.LockPath(filepath.Join(t.TempDir(), "manifest.json"))
	first, err := manifest.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := manifest.AcquireLock(path); err == nil {
		t.Fatal("expected second lock to fail")
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := manifest.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = second.Release()
}
