package tags_test

import (
	"bytes"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"assetcdn/internal/assets"
	"assetcdn/internal/services"
	"assetcdn/internal/tags"
)

func publicDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]int64{
		"js/app.js":    100,
		"js/vendor.js": 200,
		"css/site.css": 300,
		"img/logo.png": 400,
		"favicon.ico":  500,
		"fonts/a.woff": 600,
	}
	for rel, ms := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(rel), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		ts := time.UnixMilli(ms)
		if err := os.Chtimes(full, ts, ts); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return root
}

func production(t *testing.T) *tags.Renderer {
	return tags.New(tags.Options{
		Production:   true,
		Domain:       "cdn.example.com",
		SSL:          "https",
		Prefix:       "static",
		AppendPrefix: true,
		PublicDir:    publicDir(t),
	})
}

func TestProductionSingleScript(t *testing.T) {
	got, err := production(t).Render(assets.Single("/js/app.js"), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `<script src="https://cdn.example.com/static/js/app.js?cache=100" type="text/javascript"></script>`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestProductionBundleUsesEncodedName(t *testing.T) {
	got, err := production(t).Render(assets.NewBundle("/js/app.js", "/js/vendor.js"), map[string]string{"raw": "true"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "https://cdn.example.com/static/app.js%2Bvendor.js?cache=200" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestProductionSchemesAndPrefix(t *testing.T) {
	root := publicDir(t)
	tests := []struct {
		opts tags.Options
		want string
	}{
		{tags.Options{Production: true, Domain: "cdn.example.com", SSL: "relative"}, "//cdn.example.com"},
		{tags.Options{Production: true, Domain: "cdn.example.com", SSL: "http", Prefix: "p", AppendPrefix: false}, "http://cdn.example.com"},
		{tags.Options{Production: true, Domain: "cdn.example.com/", SSL: "https", Prefix: "/p/", AppendPrefix: true}, "https://cdn.example.com/p"},
		{tags.Options{Production: false, Domain: "cdn.example.com"}, ""},
	}
	for _, tt := range tests {
		tt.opts.PublicDir = root
		if got := tags.New(tt.opts).BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestTagShapes(t *testing.T) {
	r := production(t)
	tests := []struct {
		path  string
		attrs map[string]string
		want  string
	}{
		{"/css/site.css", nil, `<link href="https://cdn.example.com/static/css/site.css?cache=300" rel="stylesheet" />`},
		{"/img/logo.png", map[string]string{"alt": `Logo "A" & B`}, `<img alt="Logo &quot;A&quot; &amp; B" src="https://cdn.example.com/static/img/logo.png?cache=400" />`},
		{"/img/logo.png", map[string]string{"data-src": "lazy"}, `<img data-src="https://cdn.example.com/static/img/logo.png?cache=400" />`},
		{"/favicon.ico", nil, `<link href="https://cdn.example.com/static/favicon.ico?cache=500" rel="shortcut icon" />`},
	}
	for _, tt := range tests {
		got, err := r.Render(assets.Single(tt.path), tt.attrs)
		if err != nil {
			t.Fatalf("Render(%s): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Render(%s)\n got %s\nwant %s", tt.path, got, tt.want)
		}
	}
}

func TestUnknownTagTypeFails(t *testing.T) {
	_, err := production(t).Render(assets.Single("/fonts/a.woff"), nil)
	if !errors.Is(err, services.ErrUnsupportedMimeType) {
		t.Fatalf("expected unsupported mime type, got %v", err)
	}
}

func TestMissingFileFailsInProduction(t *testing.T) {
	_, err := production(t).Render(assets.Single("/js/missing.js"), nil)
	if !errors.Is(err, services.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
}

func TestDevelopmentRendersEachMember(t *testing.T) {
	r := tags.New(tags.Options{PublicDir: t.TempDir()}, tags.WithClock(func() time.Time { return time.UnixMilli(42) }))
	got, err := r.Render(assets.NewBundle("/js/app.js", "js/vendor.js"), map[string]string{"defer": "defer"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `<script defer="defer" src="/js/app.js?v=42" type="text/javascript"></script>` + "\n" +
		`<script defer="defer" src="/js/vendor.js?v=42" type="text/javascript"></script>`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestFuncMap(t *testing.T) {
	r := production(t)
	tmpl := template.Must(template.New("page").Funcs(r.FuncMap()).Parse(
		`{{ CDN "/js/app.js" "/js/vendor.js" }}|{{ CDNWith (attrs "alt" "Logo") "/img/logo.png" }}`))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	parts := strings.Split(buf.String(), "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected output %s", buf.String())
	}
	if !strings.Contains(parts[0], `src="https://cdn.example.com/static/app.js%2Bvendor.js?cache=200"`) {
		t.Fatalf("unexpected bundle tag %s", parts[0])
	}
	if !strings.Contains(parts[1], `alt="Logo"`) {
		t.Fatalf("unexpected image tag %s", parts[1])
	}
}
