// Package tags renders HTML tags that reference published assets.
//
// In production the URL is rooted at the CDN domain (and optional key
// prefix) and carries the fingerprint timestamp as a cache key. In
// development every bundle member is rendered as its own tag pointing at the
// local server with a request-time cache-busting token.
package tags

import (
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"assetcdn/internal/assets"
	"assetcdn/internal/services"
)

// Scheme values for CDN URLs.
const (
	SchemeHTTPS    = "https"
	SchemeHTTP     = "http"
	SchemeRelative = "relative"
)

// Options configures a Renderer.
type Options struct {
	Production   bool
	Domain       string
	SSL          string
	Prefix       string
	AppendPrefix bool
	PublicDir    string
}

// Renderer builds asset tags.
type Renderer struct {
	opts  Options
	namer *assets.Namer
	now   func() time.Time
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithClock overrides the clock used for development cache busting.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a Renderer.
func New(opts Options, options ...Option) *Renderer {
	r := &Renderer{opts: opts, namer: assets.NewNamer(opts.PublicDir), now: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// BaseURL returns the CDN root URLs are built on. It is empty in development.
func (r *Renderer) BaseURL() string {
	if !r.opts.Production {
		return ""
	}
	var base string
	switch strings.ToLower(r.opts.SSL) {
	case SchemeRelative:
		base = "//" + r.opts.Domain
	case SchemeHTTP:
		base = "http://" + r.opts.Domain
	default:
		base = "https://" + r.opts.Domain
	}
	base = strings.TrimSuffix(base, "/")
	if prefix := strings.Trim(r.opts.Prefix, "/"); prefix != "" && r.opts.AppendPrefix {
		base += "/" + prefix
	}
	return base
}

// Render returns the tag (or tags, newline separated in development) for req.
// A "raw" attribute set to "true" returns the bare URL instead.
func (r *Renderer) Render(req assets.Request, attrs map[string]string) (string, error) {
	if len(req.Paths) == 0 {
		return "", services.Wrap(services.ErrAssetNotFound, "tags", "render", "no assets given", nil)
	}
	attrs, raw := splitRaw(attrs)

	if !r.opts.Production {
		version := "?v=" + strconv.FormatInt(r.now().UnixMilli(), 10)
		out := make([]string, 0, len(req.Paths))
		for _, p := range req.Paths {
			tag, err := createTag(leadingSlash(p)+version, p, attrs, raw)
			if err != nil {
				return "", err
			}
			out = append(out, tag)
		}
		return strings.Join(out, "\n"), nil
	}

	name, err := r.namer.Name(req)
	if err != nil {
		return "", err
	}
	var asset string
	if req.IsBundle() {
		asset = "/" + encodeComponent(name.FileName)
	} else {
		asset = leadingSlash(req.Paths[0])
	}
	src := r.BaseURL() + asset + "?cache=" + strconv.FormatInt(name.Timestamp, 10)
	return createTag(src, req.Paths[0], attrs, raw)
}

// FuncMap exposes CDN helpers to html/template:
//
//	{{ CDN "/js/app.js" }}
//	{{ CDN "/js/a.js" "/js/b.js" }}
//	{{ CDNWith (attrs "alt" "Logo") "/img/logo.png" }}
func (r *Renderer) FuncMap() template.FuncMap {
	return template.FuncMap{
		"CDN": func(paths ...string) (template.HTML, error) {
			return r.renderHTML(nil, paths)
		},
		"CDNWith": func(attrs map[string]string, paths ...string) (template.HTML, error) {
			return r.renderHTML(attrs, paths)
		},
		"attrs": Attrs,
	}
}

func (r *Renderer) renderHTML(attrs map[string]string, paths []string) (template.HTML, error) {
	var req assets.Request
	switch len(paths) {
	case 0:
		return "", fmt.Errorf("CDN: no assets given")
	case 1:
		req = assets.Single(paths[0])
	default:
		req = assets.NewBundle(paths...)
	}
	out, err := r.Render(req, attrs)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil //nolint:gosec
}

// Attrs builds an attribute map from alternating keys and values.
func Attrs(pairs ...string) (map[string]string, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("attrs: odd number of arguments")
	}
	out := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	return out, nil
}

func createTag(src, asset string, attrs map[string]string, raw bool) (string, error) {
	if raw {
		return src, nil
	}
	t, ok := assets.Lookup(asset)
	if !ok {
		return "", services.Wrap(services.ErrUnsupportedMimeType, "tags", "render",
			fmt.Sprintf("unknown asset type for %q", asset), nil)
	}

	attrs = cloneAttrs(attrs)
	switch {
	case t.Kind == assets.KindScript:
		setDefault(attrs, "type", "text/javascript")
		attrs["src"] = src
		return "<script " + renderAttributes(attrs) + "></script>", nil
	case t.Kind == assets.KindStylesheet:
		setDefault(attrs, "rel", "stylesheet")
		attrs["href"] = src
		return "<link " + renderAttributes(attrs) + " />", nil
	case t.IsImage():
		key := "src"
		if attrs["data-src"] != "" {
			key = "data-src"
		}
		attrs[key] = src
		return "<img " + renderAttributes(attrs) + " />", nil
	case t.Kind == assets.KindIcon:
		setDefault(attrs, "rel", "shortcut icon")
		attrs["href"] = src
		return "<link " + renderAttributes(attrs) + " />", nil
	default:
		return "", services.Wrap(services.ErrUnsupportedMimeType, "tags", "render",
			fmt.Sprintf("no tag for %s assets", t.Mime), nil)
	}
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;", "'", "&#x27;")

func renderAttributes(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for name, value := range attrs {
		parts = append(parts, attrEscaper.Replace(name)+`="`+attrEscaper.Replace(value)+`"`)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func splitRaw(attrs map[string]string) (map[string]string, bool) {
	if _, ok := attrs["raw"]; !ok {
		return attrs, false
	}
	raw := strings.EqualFold(attrs["raw"], "true")
	out := cloneAttrs(attrs)
	delete(out, "raw")
	return out, raw
}

func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+2)
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func setDefault(attrs map[string]string, key, value string) {
	if attrs[key] == "" {
		attrs[key] = value
	}
}

func leadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// encodeComponent escapes s like a URI component, so "+" becomes "%2B".
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
