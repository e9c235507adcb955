package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"assetcdn/internal/services"
)

// FingerprintedName is the deterministic publish name of a request plus the
// newest modification time (unix ms) across its members.
type FingerprintedName struct {
	FileName  string `json:"file_name"`
	Timestamp int64  `json:"timestamp"`
}

// Namer derives publish names from files under a public root.
type Namer struct {
	publicDir string
}

// NewNamer returns a namer rooted at publicDir.
func NewNamer(publicDir string) *Namer {
	return &Namer{publicDir: publicDir}
}

// PublicDir returns the root the namer resolves against.
func (n *Namer) PublicDir() string {
	return n.publicDir
}

// SourcePath maps a request path to its local file, dropping any query or
// fragment suffix.
func (n *Namer) SourcePath(assetPath string) string {
	clean, _ := SplitSuffix(assetPath)
	return filepath.Join(n.publicDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// Type resolves the mime type shared by every member of req.
func (n *Namer) Type(req Request) (Type, error) {
	if len(req.Paths) == 0 {
		return Type{}, services.Wrap(services.ErrAssetNotFound, "assets", "resolve type", "empty request", nil)
	}
	first, ok := Lookup(req.Paths[0])
	if !ok {
		return Type{}, services.Wrap(services.ErrUnsupportedMimeType, "assets", "resolve type",
			fmt.Sprintf("no mime type for %q", req.Paths[0]), nil)
	}
	for _, p := range req.Paths[1:] {
		t, ok := Lookup(p)
		if !ok {
			return Type{}, services.Wrap(services.ErrUnsupportedMimeType, "assets", "resolve type",
				fmt.Sprintf("no mime type for %q", p), nil)
		}
		if t.Mime != first.Mime {
			return Type{}, services.Wrap(services.ErrMimeMismatch, "assets", "resolve type",
				fmt.Sprintf("bundle %s mixes %s and %s", req, first.Mime, t.Mime), nil)
		}
	}
	if req.IsBundle() && len(req.Paths) > 1 && !first.Bundleable() {
		return Type{}, services.Wrap(services.ErrUnsupportedMimeType, "assets", "resolve type",
			fmt.Sprintf("%s assets cannot be bundled", first.Mime), nil)
	}
	return first, nil
}

// Name computes the FingerprintedName of req from filesystem state.
func (n *Namer) Name(req Request) (FingerprintedName, error) {
	if _, err := n.Type(req); err != nil {
		return FingerprintedName{}, err
	}

	var newest int64
	for _, p := range req.Paths {
		info, err := os.Stat(n.SourcePath(p))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return FingerprintedName{}, services.Wrap(services.ErrAssetNotFound, "assets", "stat", p, err)
			}
			return FingerprintedName{}, services.Wrap(services.ErrTransform, "assets", "stat", p, err)
		}
		if info.IsDir() {
			return FingerprintedName{}, services.Wrap(services.ErrAssetNotFound, "assets", "stat",
				fmt.Sprintf("%s is a directory", p), nil)
		}
		if ms := info.ModTime().UnixMilli(); ms > newest {
			newest = ms
		}
	}

	return FingerprintedName{FileName: FileName(req), Timestamp: newest}, nil
}

// FileName returns the publish name of req without touching the filesystem.
func FileName(req Request) string {
	if req.IsBundle() {
		names := make([]string, len(req.Paths))
		for i, p := range req.Paths {
			clean, _ := SplitSuffix(p)
			names[i] = path.Base(clean)
		}
		return strings.Join(names, BundleSeparator)
	}
	if len(req.Paths) == 0 {
		return ""
	}
	clean, _ := SplitSuffix(req.Paths[0])
	return strings.TrimPrefix(clean, "/")
}

// StorageKey joins the optional key prefix and a publish name.
func StorageKey(prefix, fileName string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fileName
	}
	return path.Join(prefix, fileName)
}
