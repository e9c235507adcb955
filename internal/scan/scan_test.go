package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"assetcdn/internal/assets"
	"assetcdn/internal/scan"
)

func TestExtractBracketMatches(t *testing.T) {
	text := "head\n  != CDN('/js/app.js')\n  != CDN(['/js/a.js', '/js/b.js'], { defer: 'defer' })\n" +
		"  img(src=myCDN('x.png'))\n  != cdn(\"/img/a (1).png\", { alt: 'Logo (dark)' })"
	calls := scan.Extract(text)

	var got []string
	for _, c := range calls {
		got = append(got, c.Args)
	}
	want := []string{
		"'/js/app.js'",
		"['/js/a.js', '/js/b.js'], { defer: 'defer' }",
		"\"/img/a (1).png\", { alt: 'Logo (dark)' }",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %#v, want %#v", got, want)
	}
	if calls[1].Line != 3 {
		t.Fatalf("expected line 3, got %d", calls[1].Line)
	}
}

func TestParseArgs(t *testing.T) {
	req, err := scan.ParseArgs("['/js/a.js', '/js/b.js'], { defer: defer, async: true }")
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !req.IsBundle() || !reflect.DeepEqual(req.Paths, []string{"/js/a.js", "/js/b.js"}) {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Attrs["defer"] != "defer" || req.Attrs["async"] != "true" {
		t.Fatalf("unexpected attrs %+v", req.Attrs)
	}

	single, err := scan.ParseArgs(`"/css/site.css"`)
	if err != nil || single.IsBundle() || single.Paths[0] != "/css/site.css" {
		t.Fatalf("unexpected single %+v (%v)", single, err)
	}

	if _, err := scan.ParseArgs("42"); err == nil {
		t.Fatal("expected error for numeric argument")
	}
	if _, err := scan.ParseArgs("'a.js', 'not a map'"); err == nil {
		t.Fatal("expected error for non-map attributes")
	}
}

func TestSetKeepsFirstSeenOrder(t *testing.T) {
	set := scan.NewSet()
	set.Add(assets.Single("b.js"))
	set.Add(assets.Single("a.js"))
	if set.Add(assets.Single("b.js")) {
		t.Fatal("duplicate should not be added")
	}
	set.Add(assets.NewBundle("a.js", "b.js"))

	got := set.Requests()
	if len(got) != 3 || got[0].Paths[0] != "b.js" || got[1].Paths[0] != "a.js" || !got[2].IsBundle() {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestScannerDirFiltersExtensionsAndDedupes(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("a/layout.pug", "!= CDN('/js/app.js')\n!= CDN('/css/site.css')")
	write("b/index.ejs", "<%- CDN('/js/app.js') %>\n<%- CDN(name) %>")
	write("c/readme.txt", "CDN('/js/ignored.js')")

	reqs, err := scan.New([]string{".pug", "ejs"}, nil).Dir(context.Background(), root)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	var got []string
	for _, r := range reqs {
		got = append(got, r.Identity())
	}
	want := []string{"/js/app.js", "/css/site.css"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dir = %v, want %v", got, want)
	}
}
