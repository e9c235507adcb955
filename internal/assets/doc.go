// Package assets models publish requests and derives their deterministic
// publish names.
//
// A Request is either a single path or an ordered bundle of paths relative
// to the public root. The Namer resolves a request's mime type (every bundle
// member must agree), its FingerprintedName (bundle basenames joined with
// "+", or the path without its leading slash for single assets) and the
// newest modification time across members in milliseconds. StorageKey
// namespaces the name under the configured key prefix.
package assets
