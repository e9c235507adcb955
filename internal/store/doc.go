// Package store defines the remote object store the publish pipeline talks to
// and ships two drivers: an S3-compatible client built on minio-go and a
// local-directory store for staging runs and tests.
//
// Head reports remote metadata for a storage key and returns ErrNotFound when
// the object does not exist; every other failure is an *Error carrying a code
// and a retryability hint. Put writes an object with public-read visibility
// and the supplied response headers.
package store
