// Package config loads, normalizes, and validates assetcdn configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for object
// store credentials such as AWS_ACCESS_KEY_ID. The Config type centralizes
// every knob the publish pipeline, tag renderer, and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
