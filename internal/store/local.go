package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"assetcdn/internal/fileutil"
)

const metaDirName = ".meta"

// LocalStore persists objects on disk with JSON metadata sidecars.
type LocalStore struct {
	root string
	now  func() time.Time
}

type localMeta struct {
	ContentType     string    `json:"content_type"`
	CacheControl    string    `json:"cache_control"`
	ContentEncoding string    `json:"content_encoding"`
	Expires         time.Time `json:"expires"`
	ACL             string    `json:"acl"`
	LastModified    time.Time `json:"last_modified"`
	Size            int64     `json:"size"`
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, wrapError("connect", "", CodeBucketNotFound, false, errors.New("local store directory is required"))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, wrapError("connect", "", CodePermissionDenied, false, err)
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

// Root returns the store directory.
func (s *LocalStore) Root() string {
	return s.root
}

// ObjectPath returns where the object for key lives on disk.
func (s *LocalStore) ObjectPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(cleanKey(key)))
}

func (s *LocalStore) metaPath(key string) string {
	return filepath.Join(s.root, metaDirName, filepath.FromSlash(cleanKey(key))+".json")
}

func (s *LocalStore) Head(ctx context.Context, key string) (ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMeta{}, err
	}
	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectMeta{}, ErrNotFound
		}
		return ObjectMeta{}, wrapError("head", key, CodeReadFailed, true, err)
	}
	var meta localMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ObjectMeta{}, wrapError("head", key, CodeReadFailed, false, err)
	}
	return ObjectMeta{Key: key, LastModified: meta.LastModified, Size: meta.Size}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, body []byte, headers Headers) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cleanKey(key) == "" {
		return wrapError("put", key, CodeWriteFailed, false, errors.New("object key is required"))
	}
	if err := fileutil.WriteAtomic(s.ObjectPath(key), body, 0o644); err != nil {
		return wrapError("put", key, CodeWriteFailed, true, err)
	}
	meta := localMeta{
		ContentType:     headers.ContentType,
		CacheControl:    headers.CacheControl,
		ContentEncoding: headers.ContentEncoding,
		Expires:         headers.Expires,
		ACL:             "public-read",
		LastModified:    s.now().UTC(),
		Size:            int64(len(body)),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return wrapError("put", key, CodeWriteFailed, false, err)
	}
	if err := fileutil.WriteAtomic(s.metaPath(key), data, 0o644); err != nil {
		return wrapError("put", key, CodeWriteFailed, true, err)
	}
	return nil
}

// Headers returns the stored headers for key.
func (s *LocalStore) Headers(key string) (Headers, error) {
	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Headers{}, ErrNotFound
		}
		return Headers{}, err
	}
	var meta localMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Headers{}, err
	}
	return Headers{
		ContentType:     meta.ContentType,
		CacheControl:    meta.CacheControl,
		ContentEncoding: meta.ContentEncoding,
		Expires:         meta.Expires,
	}, nil
}

func cleanKey(key string) string {
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
