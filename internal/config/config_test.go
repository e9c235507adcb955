package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"assetcdn/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsPathsAndAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ASSETCDN_ACCESS_KEY", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("ASSETCDN_SECRET_KEY", "env-secret")

	path := writeConfig(t, t.TempDir(), `
[paths]
public_dir = "~/site/public"
views_dir = "~/site/views"

[store]
prefix = "/assets/"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.PublicDir != filepath.Join(tempHome, "site", "public") {
		t.Fatalf("unexpected public dir: %q", cfg.Paths.PublicDir)
	}
	if cfg.Store.Prefix != "assets" {
		t.Fatalf("expected trimmed prefix, got %q", cfg.Store.Prefix)
	}
	if cfg.Store.AccessKey != "env-key" || cfg.Store.SecretKey != "env-secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.Store.AccessKey, cfg.Store.SecretKey)
	}
	if cfg.Publish.Concurrency != config.Default().Publish.Concurrency {
		t.Fatalf("unexpected concurrency: %d", cfg.Publish.Concurrency)
	}
	if cfg.CDN.SSL != config.SSLHTTPS {
		t.Fatalf("unexpected ssl mode: %q", cfg.CDN.SSL)
	}
	if !cfg.ShouldAppendPrefix() {
		t.Fatal("expected append_prefix to default to true")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadRequiresPublicAndViewsDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), `
[paths]
views_dir = "/tmp/views"
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "paths.public_dir") {
		t.Fatalf("expected public_dir error, got %v", err)
	}
}

func TestProductionRequiresDomainAndBucket(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ASSETCDN_ACCESS_KEY", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	base := t.TempDir()

	path := writeConfig(t, base, `
[paths]
public_dir = "/srv/public"
views_dir = "/srv/views"

[cdn]
production = true
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "cdn.domain") {
		t.Fatalf("expected cdn.domain error, got %v", err)
	}

	path = writeConfig(t, base, `
[paths]
public_dir = "/srv/public"
views_dir = "/srv/views"

[cdn]
production = true
domain = "cdn.example.com"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "store.bucket") {
		t.Fatalf("expected store.bucket error, got %v", err)
	}
}

func TestLocalDriverSkipsCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	local := t.TempDir()
	path := writeConfig(t, t.TempDir(), `
[paths]
public_dir = "/srv/public"
views_dir = "/srv/views"

[store]
driver = "LOCAL"
local_dir = "`+filepath.ToSlash(local)+`"

[cdn]
production = true
domain = "cdn.example.com"
append_prefix = false
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != config.StoreDriverLocal {
		t.Fatalf("expected local driver, got %q", cfg.Store.Driver)
	}
	if cfg.ShouldAppendPrefix() {
		t.Fatal("expected append_prefix false")
	}
	if err := cfg.ValidatePublish(); err != nil {
		t.Fatalf("ValidatePublish: %v", err)
	}
}

func TestValidateRejectsUnknownSSLMode(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.PublicDir = "/srv/public"
	cfg.Paths.ViewsDir = "/srv/views"
	cfg.CDN.SSL = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ssl validation error")
	}
}

func TestSampleConfigParses(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Publish.UploadAttempts != 5 {
		t.Fatalf("unexpected upload attempts in sample: %d", cfg.Publish.UploadAttempts)
	}
	if cfg.CDN.AppendPrefix == nil || !*cfg.CDN.AppendPrefix {
		t.Fatal("expected append_prefix true in sample")
	}
}
