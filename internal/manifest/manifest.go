// Package manifest persists the outcome list of a successful publish run and
// implements the short-circuit that skips publishing while a manifest exists.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"assetcdn/internal/fileutil"
	"assetcdn/internal/pipeline"
)

// Manifest is the record written after a successful run.
type Manifest struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Summary     pipeline.Summary   `json:"summary"`
	Outcomes    []pipeline.Outcome `json:"outcomes"`
}

// New builds a manifest for a finished run.
func New(runID string, generatedAt time.Time, outcomes []pipeline.Outcome) Manifest {
	return Manifest{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Summary:     pipeline.Summarize(outcomes),
		Outcomes:    outcomes,
	}
}

// ShouldSkip reports whether path holds a non-empty manifest file.
func ShouldSkip(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat manifest: %w", err)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

// Load reads a manifest from path.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Write stores m at path atomically.
func Write(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Lock guards a publish run against concurrent runs sharing a manifest.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for a manifest path. Without a manifest
// the lock lives in the system temp directory.
func LockPath(manifestPath string) string {
	if manifestPath == "" {
		return filepath.Join(os.TempDir(), "assetcdn.lock")
	}
	return manifestPath + ".lock"
}

// AcquireLock takes the exclusive lock at path without blocking.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another assetcdn publish run holds %s", path)
	}
	return &Lock{path: path, lock: lock}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
