package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCDN(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.PublicDir == "" {
		return missingOption("paths.public_dir")
	}
	if c.Paths.ViewsDir == "" {
		return missingOption("paths.views_dir")
	}
	return nil
}

func (c *Config) validateCDN() error {
	switch c.CDN.SSL {
	case SSLHTTPS, SSLHTTP, SSLRelative:
	default:
		return fmt.Errorf("cdn.ssl: unsupported value %q (expected https, http, or relative)", c.CDN.SSL)
	}
	if c.CDN.Production && c.CDN.Domain == "" {
		return missingOption("cdn.domain")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Driver == StoreDriverS3 && !c.CDN.Production {
		return nil
	}
	return c.ValidatePublish()
}

// ValidatePublish checks the settings a publish run needs regardless of the
// production switch.
func (c *Config) ValidatePublish() error {
	switch c.Store.Driver {
	case StoreDriverS3:
		if c.Store.Bucket == "" {
			return missingOption("store.bucket")
		}
		if c.Store.AccessKey == "" {
			return missingOption("store.access_key")
		}
		if c.Store.SecretKey == "" {
			return missingOption("store.secret_key")
		}
		if c.Store.Endpoint == "" {
			return missingOption("store.endpoint")
		}
	case StoreDriverLocal:
		if c.Store.LocalDir == "" {
			return missingOption("store.local_dir")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q (expected s3 or local)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.UploadsPerSecond < 0 {
		return errors.New("publish.uploads_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

func missingOption(name string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/assetcdn/config.toml"
	}
	return fmt.Errorf("missing option %q; edit %s (create with 'assetcdn config init')", name, strings.TrimSpace(defaultPath))
}
