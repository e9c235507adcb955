package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory and file locations.
type Paths struct {
	PublicDir string `toml:"public_dir"`
	ViewsDir  string `toml:"views_dir"`
	CacheFile string `toml:"cache_file"`
	LogDir    string `toml:"log_dir"`
	DebugDir  string `toml:"debug_dir"`
}

// Store contains configuration for the remote object store.
type Store struct {
	Driver    string `toml:"driver"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Prefix    string `toml:"prefix"`
	LocalDir  string `toml:"local_dir"`
}

// CDN contains configuration for public URL generation.
type CDN struct {
	Domain     string `toml:"domain"`
	SSL        string `toml:"ssl"`
	Production bool   `toml:"production"`
	// AppendPrefix controls whether store.prefix is appended to CDN URLs.
	// A nil value means "not set" and defaults to true.
	AppendPrefix *bool `toml:"append_prefix"`
}

// Publish contains configuration for the publish pipeline.
type Publish struct {
	ContinueOnFailure bool    `toml:"continue_on_failure"`
	Concurrency       int     `toml:"concurrency"`
	UploadAttempts    int     `toml:"upload_attempts"`
	RetryBaseDelayMs  int     `toml:"retry_base_delay_ms"`
	RetryMaxDelayMs   int     `toml:"retry_max_delay_ms"`
	UploadsPerSecond  float64 `toml:"uploads_per_second"`
}

// Optimizers names the external image optimizer binaries.
type Optimizers struct {
	OptiPNG  string `toml:"optipng"`
	Jpegtran string `toml:"jpegtran"`
}

// Scan contains configuration for template scanning.
type Scan struct {
	Extensions  []string `toml:"extensions"`
	DisableWalk bool     `toml:"disable_walk"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for assetcdn.
//
// Configuration sections by subsystem:
//   - Paths: public/views directories, manifest cache file, logs
//   - Store: object store driver, bucket, credentials, key prefix
//   - CDN: public domain, scheme, production switch
//   - Publish: failure policy, concurrency, upload retry and rate limits
//   - Optimizers: optipng/jpegtran binaries
//   - Scan: template extensions and walk switch
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Store      Store      `toml:"store"`
	CDN        CDN        `toml:"cdn"`
	Publish    Publish    `toml:"publish"`
	Optimizers Optimizers `toml:"optimizers"`
	Scan       Scan       `toml:"scan"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/assetcdn/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("assetcdn.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories assetcdn writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.DebugDir}
	if c.Paths.CacheFile != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.CacheFile))
	}
	if c.Store.Driver == StoreDriverLocal {
		dirs = append(dirs, c.Store.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ShouldAppendPrefix reports whether the store prefix is part of CDN URLs.
func (c *Config) ShouldAppendPrefix() bool {
	if c.CDN.AppendPrefix == nil {
		return true
	}
	return *c.CDN.AppendPrefix
}

// RetryBaseDelay returns the initial upload retry delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Publish.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the upload retry delay cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Publish.RetryMaxDelayMs) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
