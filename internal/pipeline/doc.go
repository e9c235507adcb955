// Package pipeline fans a list of publish requests out over a bounded worker
// pool and joins their outcomes.
//
// Each request flows through fingerprinting, the staleness check, the
// transform for its mime kind and the upload. Stylesheet transforms yield
// nested jobs for the images and fonts they reference; those are submitted
// to the same pool before the stylesheet uploads and go through the full
// flow themselves. A storage key is processed at most once per run.
//
// Bundle mime mismatches are rejected before any work starts. Upload
// failures always abort the run. Other job failures abort it unless
// ContinueOnFailure is set, in which case they are recorded on the outcome.
package pipeline
