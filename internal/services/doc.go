// Package services defines shared utilities consumed by the publish pipeline
// components.
//
// Key responsibilities:
//   - Context helpers that stamp the run ID, asset, and component names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the error kinds recorded in publish outcomes and the manifest.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error classification, observability) stays uniform across components.
package services
