package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeCDN()
	c.normalizePublish()
	c.normalizeOptimizers()
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.PublicDir, err = expandPath(strings.TrimSpace(c.Paths.PublicDir)); err != nil {
		return fmt.Errorf("paths.public_dir: %w", err)
	}
	if c.Paths.ViewsDir, err = expandPath(strings.TrimSpace(c.Paths.ViewsDir)); err != nil {
		return fmt.Errorf("paths.views_dir: %w", err)
	}
	if c.Paths.CacheFile, err = expandPath(strings.TrimSpace(c.Paths.CacheFile)); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DebugDir, err = expandPath(strings.TrimSpace(c.Paths.DebugDir)); err != nil {
		return fmt.Errorf("paths.debug_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.Endpoint = strings.TrimSpace(c.Store.Endpoint)
	c.Store.Region = strings.TrimSpace(c.Store.Region)
	c.Store.Bucket = strings.TrimSpace(c.Store.Bucket)
	c.Store.Prefix = strings.Trim(strings.TrimSpace(c.Store.Prefix), "/")
	if c.Store.AccessKey == "" {
		c.Store.AccessKey = firstEnv("ASSETCDN_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	}
	if c.Store.SecretKey == "" {
		c.Store.SecretKey = firstEnv("ASSETCDN_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.Store.LocalDir) == "" {
		c.Store.LocalDir = defaultLocalStoreDir
	}
	var err error
	if c.Store.LocalDir, err = expandPath(c.Store.LocalDir); err != nil {
		return fmt.Errorf("store.local_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCDN() {
	c.CDN.Domain = strings.TrimSuffix(strings.TrimSpace(c.CDN.Domain), "/")
	c.CDN.SSL = strings.ToLower(strings.TrimSpace(c.CDN.SSL))
	switch c.CDN.SSL {
	case "", "true":
		c.CDN.SSL = SSLHTTPS
	case "false":
		c.CDN.SSL = SSLHTTP
	}
}

func (c *Config) normalizePublish() {
	if c.Publish.Concurrency <= 0 {
		c.Publish.Concurrency = defaultConcurrency
	}
	if c.Publish.UploadAttempts <= 0 {
		c.Publish.UploadAttempts = 1
	}
	if c.Publish.RetryBaseDelayMs < 0 {
		c.Publish.RetryBaseDelayMs = 0
	}
	if c.Publish.RetryMaxDelayMs < c.Publish.RetryBaseDelayMs {
		c.Publish.RetryMaxDelayMs = c.Publish.RetryBaseDelayMs
	}
}

func (c *Config) normalizeOptimizers() {
	c.Optimizers.OptiPNG = strings.TrimSpace(c.Optimizers.OptiPNG)
	if c.Optimizers.OptiPNG == "" {
		c.Optimizers.OptiPNG = defaultOptiPNGBinary
	}
	c.Optimizers.Jpegtran = strings.TrimSpace(c.Optimizers.Jpegtran)
	if c.Optimizers.Jpegtran == "" {
		c.Optimizers.Jpegtran = defaultJpegtranBinary
	}
}

func (c *Config) normalizeScan() {
	exts := make([]string, 0, len(c.Scan.Extensions))
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultScanExtensions...)
	}
	c.Scan.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
