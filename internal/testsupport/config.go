package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"assetcdn/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It uses the local store driver and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PublicDir = filepath.Join(base, "public")
	cfgVal.Paths.ViewsDir = filepath.Join(base, "views")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheFile = filepath.Join(base, "cache", "manifest.json")
	cfgVal.Store.Driver = config.StoreDriverLocal
	cfgVal.Store.LocalDir = filepath.Join(base, "objects")
	cfgVal.Publish.RetryBaseDelayMs = 0
	cfgVal.Publish.RetryMaxDelayMs = 0

	for _, dir := range []string{cfgVal.Paths.PublicDir, cfgVal.Paths.ViewsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProduction enables production mode with the given CDN domain.
func WithProduction(domain string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CDN.Production = true
		b.cfg.CDN.Domain = domain
	}
}

// WithPrefix sets the storage key prefix.
func WithPrefix(prefix string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Prefix = prefix
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default optimizer binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"optipng", "jpegtran"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.PublicDir)
}
