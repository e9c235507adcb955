package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

func TestLocalStorePutThenHead(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	if _, err := s.Head(ctx, "static/app.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before put, got %v", err)
	}

	headers := Headers{ContentType: "application/javascript", CacheControl: "maxage=31556926", ContentEncoding: "gzip"}
	if err := s.Put(ctx, "static/app.js", []byte("payload"), headers); err != nil {
		t.Fatalf("Put: %v", err)
	}

	meta, err := s.Head(ctx, "static/app.js")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !meta.LastModified.Equal(fixed) || meta.Size != int64(len("payload")) {
		t.Fatalf("unexpected meta %+v", meta)
	}

	data, err := os.ReadFile(s.ObjectPath("static/app.js"))
	if err != nil || string(data) != "payload" {
		t.Fatalf("unexpected object contents %q, %v", data, err)
	}
	stored, err := s.Headers("static/app.js")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if stored.ContentType != headers.ContentType || stored.CacheControl != headers.CacheControl || stored.ContentEncoding != headers.ContentEncoding {
		t.Fatalf("headers mismatch: %+v vs %+v", stored, headers)
	}
}

func TestLocalStoreKeysCannotEscapeRoot(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if got := s.ObjectPath("../../etc/passwd"); got != s.ObjectPath("etc/passwd") {
		t.Fatalf("expected key to be confined to root, got %s", got)
	}
}

func TestLocalStoreRequiresRoot(t *testing.T) {
	if _, err := NewLocalStore(" "); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestClassifyErrorNotFoundIsTwoWay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		retry    bool
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, true, false},
		{"bare 404 on head", minio.ErrorResponse{StatusCode: http.StatusNotFound}, true, false},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, false, false},
		{"bad credentials", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, false, false},
		{"server error", minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}, false, true},
		{"network", fmt.Errorf("dial tcp: connection refused"), false, true},
		{"canceled", context.Canceled, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("head", "a.js", tt.err)
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Fatalf("errors.Is(ErrNotFound) = %v, want %v (%v)", got, tt.notFound, err)
			}
			if got := IsRetryable(err); got != tt.retry {
				t.Fatalf("IsRetryable = %v, want %v (%v)", got, tt.retry, err)
			}
		})
	}
}

func TestIsRetryableDefaultsToTransient(t *testing.T) {
	if !IsRetryable(errors.New("boom")) {
		t.Fatal("plain errors should be retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if IsRetryable(&Error{Code: CodeAuthInvalid}) {
		t.Fatal("auth errors are not retryable")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		useSSL   bool
		wantHost string
		wantSSL  bool
	}{
		{"s3.amazonaws.com", true, "s3.amazonaws.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"https://minio.internal/", false, "minio.internal", true},
	}
	for _, tt := range tests {
		host, ssl, err := parseEndpoint(tt.raw, tt.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q): %v", tt.raw, err)
		}
		if host != tt.wantHost || ssl != tt.wantSSL {
			t.Errorf("parseEndpoint(%q) = %q, %v", tt.raw, host, ssl)
		}
	}
	if _, _, err := parseEndpoint("", true); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestNewS3StoreValidates(t *testing.T) {
	if _, err := NewS3Store(S3Config{Endpoint: "s3.amazonaws.com", AccessKey: "a", SecretKey: "b"}); err == nil {
		t.Fatal("expected error without bucket")
	}
	if _, err := NewS3Store(S3Config{Endpoint: "s3.amazonaws.com", Bucket: "b"}); err == nil {
		t.Fatal("expected error without credentials")
	}
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "assets", AccessKey: "a", SecretKey: "b"})
	if err != nil || s == nil {
		t.Fatalf("NewS3Store: %v", err)
	}
}
