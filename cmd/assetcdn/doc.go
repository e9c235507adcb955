// Package main hosts the assetcdn CLI entrypoint and command graph.
//
// The Cobra-based command tree scans templates for CDN references, publishes
// the referenced assets to the configured object store, renders tags for
// individual assets, checks optimizer binaries, and scaffolds configuration.
// It centralizes configuration resolution and logger setup so subcommands
// only assemble the internal packages they need.
//
// Keep this package lean: new behavior belongs in internal packages first and
// is surfaced here through a command or flag.
package main
