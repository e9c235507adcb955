package cssrewrite

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"assetcdn/internal/assets"
	"assetcdn/internal/logging"
)

// RefKind classifies a discovered reference.
type RefKind string

const (
	KindImage RefKind = "image"
	KindFont  RefKind = "font"
)

// Job is a nested publish job discovered in a stylesheet.
type Job struct {
	Request assets.Request
	// URL is the value substituted into the stylesheet.
	URL string
}

// Match is a Ref resolved against the public root.
type Match struct {
	Ref
	Resolved string
	RelPath  string
	Suffix   string
	Kind     RefKind
	URL      string
}

// Result is the rewritten stylesheet plus the jobs it depends on.
type Result struct {
	CSS  string
	Jobs []Job
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Rewriter rewrites stylesheet url references for one public root.
type Rewriter struct {
	publicDir  string
	production bool
	logger     *slog.Logger
}

// New constructs a Rewriter. Outside production it returns text unchanged.
func New(publicDir string, production bool, logger *slog.Logger) *Rewriter {
	return &Rewriter{
		publicDir:  publicDir,
		production: production,
		logger:     logging.NewComponentLogger(logger, "cssrewrite"),
	}
}

// Rewrite resolves references in css, which was read from the public-root
// relative path member and will be published as fileName.
func (r *Rewriter) Rewrite(css, member, fileName string) Result {
	if !r.production {
		return Result{CSS: css}
	}

	matches := r.Resolve(css, member, fileName)
	if len(matches) == 0 {
		return Result{CSS: css}
	}

	var b strings.Builder
	b.Grow(len(css))
	last := 0
	seen := make(map[string]struct{}, len(matches))
	jobs := make([]Job, 0, len(matches))
	for _, m := range matches {
		b.WriteString(css[last:m.Start])
		b.WriteString("url(")
		if m.Quote != 0 {
			b.WriteByte(m.Quote)
		}
		b.WriteString(m.URL)
		if m.Quote != 0 {
			b.WriteByte(m.Quote)
		}
		b.WriteByte(')')
		last = m.End

		if _, ok := seen[m.RelPath]; ok {
			continue
		}
		seen[m.RelPath] = struct{}{}
		jobs = append(jobs, Job{
			Request: assets.Single(m.RelPath),
			URL:     m.URL,
		})
	}
	b.WriteString(css[last:])
	return Result{CSS: b.String(), Jobs: jobs}
}

// Resolve scans css and returns the references that map to publishable
// files under the public root.
func (r *Rewriter) Resolve(css, member, fileName string) []Match {
	refs := Scan(css)
	if len(refs) == 0 {
		return nil
	}

	memberClean, _ := assets.SplitSuffix(member)
	memberDir := filepath.Dir(filepath.Join(r.publicDir, filepath.FromSlash(strings.TrimPrefix(memberClean, "/"))))
	outputDir := filepath.Dir(filepath.Join(r.publicDir, filepath.FromSlash(fileName)))

	matches := make([]Match, 0, len(refs))
	for _, ref := range refs {
		raw := strings.TrimSpace(ref.Raw)
		if skipReference(raw) {
			continue
		}
		clean, suffix := assets.SplitSuffix(raw)
		if clean == "" {
			continue
		}
		t, ok := assets.Lookup(clean)
		if !ok {
			r.logger.Debug("unrecognized stylesheet reference left as is",
				logging.String("reference", raw),
				logging.String("member", member),
			)
			continue
		}

		var resolved string
		if strings.HasPrefix(clean, "/") {
			resolved = filepath.Join(r.publicDir, filepath.FromSlash(clean))
		} else {
			resolved = filepath.Join(memberDir, filepath.FromSlash(clean))
		}
		rel, err := filepath.Rel(r.publicDir, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			logging.WarnWithContext(r.logger, "stylesheet reference outside public root", "css_reference_outside_root",
				logging.String("reference", raw),
				logging.String("member", member),
				logging.String(logging.FieldImpact, "reference left unchanged and not published"),
			)
			continue
		}
		target, err := filepath.Rel(outputDir, resolved)
		if err != nil {
			continue
		}

		kind := KindImage
		if t.Kind == assets.KindFont {
			kind = KindFont
		}
		matches = append(matches, Match{
			Ref:      ref,
			Resolved: resolved,
			RelPath:  filepath.ToSlash(rel),
			Suffix:   suffix,
			Kind:     kind,
			URL:      filepath.ToSlash(target) + suffix,
		})
	}
	return matches
}

func skipReference(raw string) bool {
	switch {
	case raw == "":
		return true
	case strings.HasPrefix(raw, "#"):
		return true
	case strings.HasPrefix(raw, "//"):
		return true
	case schemePattern.MatchString(raw):
		// data:, http:, https: and friends
		return true
	}
	return false
}
