package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Error codes attached to store failures.
const (
	CodeObjectNotFound   = "E_OBJECT_NOT_FOUND"
	CodeBucketNotFound   = "E_BUCKET_NOT_FOUND"
	CodeAuthInvalid      = "E_AUTH_INVALID"
	CodePermissionDenied = "E_PERMISSION_DENIED"
	CodeTimeout          = "E_TIMEOUT"
	CodeUnreachable      = "E_ENDPOINT_UNREACHABLE"
	CodeWriteFailed      = "E_WRITE_FAILED"
	CodeReadFailed       = "E_READ_FAILED"
)

// ObjectMeta is the remote metadata consulted by the staleness check.
type ObjectMeta struct {
	Key          string
	LastModified time.Time
	Size         int64
	ETag         string
}

// Headers are the response headers stored alongside an object.
type Headers struct {
	ContentType     string
	CacheControl    string
	ContentEncoding string
	Expires         time.Time
}

// Store is the remote object store collaborator.
type Store interface {
	Head(ctx context.Context, key string) (ObjectMeta, error)
	Put(ctx context.Context, key string, body []byte, headers Headers) error
}

// Error wraps store failures with retryability hints.
type Error struct {
	Op        string
	Key       string
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code
	if e.Op != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(op, key, code string, retryable bool, err error) *Error {
	return &Error{Op: op, Key: key, Code: code, Retryable: retryable, Err: err}
}

// IsRetryable reports whether a failed store call may succeed when repeated.
// Context cancellation is never retryable; errors that carry no store
// classification are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Retryable
	}
	return true
}
