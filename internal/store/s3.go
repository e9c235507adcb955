package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Store implements Store on top of minio-go.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store creates a client for the configured endpoint and bucket.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, wrapError("connect", "", CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, wrapError("connect", "", CodeAuthInvalid, false, errors.New("credentials are required"))
	}

	endpoint, useSSL, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, wrapError("connect", "", CodeUnreachable, false, err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, wrapError("connect", "", CodeUnreachable, false, fmt.Errorf("create minio client: %w", err))
	}
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// parseEndpoint accepts either a bare host or a URL; a URL scheme overrides useSSL.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint URL %q", raw)
	}
	switch u.Scheme {
	case "https":
		useSSL = true
	case "http":
		useSSL = false
	}
	return u.Host, useSSL, nil
}

// Head stats the object stored under key.
func (s *S3Store) Head(ctx context.Context, key string) (ObjectMeta, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectMeta{}, classifyError("head", key, err)
	}
	return ObjectMeta{
		Key:          key,
		LastModified: info.LastModified,
		Size:         info.Size,
		ETag:         info.ETag,
	}, nil
}

// Put uploads body with public-read visibility.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, headers Headers) error {
	opts := minio.PutObjectOptions{
		ContentType:     headers.ContentType,
		ContentEncoding: headers.ContentEncoding,
		CacheControl:    headers.CacheControl,
		Expires:         headers.Expires,
		UserMetadata:    map[string]string{"x-amz-acl": "public-read"},
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), opts)
	if err != nil {
		return classifyError("put", key, err)
	}
	return nil
}

// classifyError maps minio-go failures onto ErrNotFound or a coded *Error.
// Only an explicit missing-object response counts as not found.
func classifyError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapError(op, key, CodeTimeout, false, err)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%s %s: %w", op, key, ErrNotFound)
	case "NoSuchBucket":
		return wrapError(op, key, CodeBucketNotFound, false, err)
	case "AccessDenied":
		return wrapError(op, key, CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(op, key, CodeAuthInvalid, false, err)
	case "RequestTimeout", "SlowDown", "ServiceUnavailable", "InternalError":
		return wrapError(op, key, CodeTimeout, true, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && op == "head":
		return fmt.Errorf("%s %s: %w", op, key, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return wrapError(op, key, CodePermissionDenied, false, err)
	case resp.StatusCode >= 500:
		return wrapError(op, key, CodeUnreachable, true, err)
	}

	code := CodeWriteFailed
	if op == "head" {
		code = CodeReadFailed
	}
	return wrapError(op, key, code, true, err)
}
