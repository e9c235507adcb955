package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"assetcdn/internal/assets"
	"assetcdn/internal/logging"
)

// Scanner walks a views directory for CDN(...) calls.
type Scanner struct {
	extensions map[string]struct{}
	logger     *slog.Logger
}

// New constructs a Scanner for files with the given extensions.
func New(extensions []string, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Scanner{extensions: exts, logger: logging.NewComponentLogger(logger, "scan")}
}

// Dir walks root and returns the deduplicated requests in discovery order.
// Files are visited in lexical order.
func (s *Scanner) Dir(ctx context.Context, root string) ([]assets.Request, error) {
	set := NewSet()
	files := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := s.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		files++
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		s.collect(set, rel, string(data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan views: %w", err)
	}

	s.logger.Info("template scan complete",
		logging.String("views_dir", root),
		logging.Int("templates", files),
		logging.Int("requests", set.Len()),
	)
	return set.Requests(), nil
}

// Text extracts requests from a single template source.
func (s *Scanner) Text(name, text string) []assets.Request {
	set := NewSet()
	s.collect(set, name, text)
	return set.Requests()
}

func (s *Scanner) collect(set *Set, name, text string) {
	for _, call := range Extract(text) {
		req, err := ParseArgs(call.Args)
		if err == nil {
			err = validate(req)
		}
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping CDN call", "scan_call_skipped",
				logging.String("template", name),
				logging.Int("line", call.Line),
				logging.String("args", call.Args),
				logging.Error(err),
				logging.String(logging.FieldImpact, "asset not published by this run"),
				logging.String(logging.FieldErrorHint, "use literal asset paths in CDN() calls"),
			)
			continue
		}
		if set.Add(req) {
			s.logger.Debug("asset reference found",
				logging.String("template", name),
				logging.Int("line", call.Line),
				logging.String("request", req.String()),
			)
		}
	}
}

func validate(req assets.Request) error {
	for _, p := range req.Paths {
		if p == "" {
			return fmt.Errorf("empty asset path")
		}
		if _, ok := assets.Lookup(p); !ok {
			return fmt.Errorf("no mime type for %q", p)
		}
	}
	return nil
}
