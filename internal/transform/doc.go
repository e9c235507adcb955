// Package transform turns the local files of a publish request into the
// bytes and response headers that get uploaded.
//
// The Dispatcher selects a transform by the request's mime kind:
//
//   - scripts are concatenated with newlines and minified
//   - stylesheets are minified per member, url references rewritten, then
//     concatenated; discovered references come back as nested jobs
//   - PNG and JPEG files are optimized in place by external processes
//   - other images, icons and fonts pass through unmodified
//
// Minifier and optimizer failures are fatal unless ContinueOnFailure is set,
// in which case the untransformed bytes are used and the failure is logged.
package transform
