package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"assetcdn/internal/assets"
	"assetcdn/internal/optimizer"
	"assetcdn/internal/pipeline"
	"assetcdn/internal/services"
	"assetcdn/internal/staleness"
	"assetcdn/internal/testsupport"
	"assetcdn/internal/transform"
	"assetcdn/internal/upload"
)

type identityMinifier struct{}

func (identityMinifier) Minify(_ string, text string) (string, error) {
	return strings.TrimSpace(text), nil
}

type exitExecutor struct {
	code int
}

func (e exitExecutor) Run(context.Context, string, []string, func(string)) (optimizer.Result, error) {
	return optimizer.Result{ExitCode: e.code, Output: []string{"optimizer says no"}}, nil
}

// inPlaceExecutor rewrites the target file the way optipng does.
type inPlaceExecutor struct{}

func (inPlaceExecutor) Run(_ context.Context, _ string, args []string, _ func(string)) (optimizer.Result, error) {
	if err := os.WriteFile(args[len(args)-1], []byte("optimized"), 0o644); err != nil {
		return optimizer.Result{}, err
	}
	return optimizer.Result{}, nil
}

type harness struct {
	root  string
	store *testsupport.MemoryStore
	pipe  *pipeline.Pipeline
}

type harnessOptions struct {
	prefix            string
	continueOnFailure bool
	production        bool
	optimizerExit     int
	uploadAttempts    int
	executor          optimizer.Executor
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	root := t.TempDir()
	mem := testsupport.NewMemoryStore()
	executor := opts.executor
	if executor == nil {
		executor = exitExecutor{code: opts.optimizerExit}
	}
	opt := optimizer.New("optipng", "jpegtran", nil, optimizer.WithExecutor(executor))
	dispatcher := transform.New(transform.Options{
		PublicDir:         root,
		Production:        opts.production,
		ContinueOnFailure: opts.continueOnFailure,
	}, opt, nil, transform.WithMinifier(identityMinifier{}))
	attempts := opts.uploadAttempts
	if attempts == 0 {
		attempts = 3
	}
	publisher := upload.New(mem, nil, upload.WithRetryMaxAttempts(attempts), upload.WithSleeper(func(time.Duration) {}))
	pipe := pipeline.New(pipeline.Options{
		Prefix:            opts.prefix,
		Concurrency:       2,
		ContinueOnFailure: opts.continueOnFailure,
	}, assets.NewNamer(root), staleness.New(mem, nil), dispatcher, publisher, nil)
	return &harness{root: root, store: mem, pipe: pipe}
}

func (h *harness) write(t *testing.T, rel, content string, mtimeMs int64) {
	t.Helper()
	testsupport.WriteAsset(t, h.root, rel, content, time.UnixMilli(mtimeMs))
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	return string(out)
}

func findOutcome(t *testing.T, outcomes []pipeline.Outcome, key string) pipeline.Outcome {
	t.Helper()
	for _, o := range outcomes {
		if o.Key == key {
			return o
		}
	}
	t.Fatalf("no outcome for %s in %+v", key, outcomes)
	return pipeline.Outcome{}
}

func TestRunBundleEndToEnd(t *testing.T) {
	h := newHarness(t, harnessOptions{prefix: "static"})
	h.write(t, "app.js", "var app = 1;", 100)
	h.write(t, "vendor.js", "var vendor = 2;", 200)

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{assets.NewBundle("app.js", "vendor.js")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := findOutcome(t, outcomes, "static/app.js+vendor.js")
	if !o.Published || o.Decision != staleness.Republish || o.Timestamp != 200 || o.Attempts != 1 {
		t.Fatalf("unexpected outcome %+v", o)
	}
	obj, ok := h.store.Object("static/app.js+vendor.js")
	if !ok {
		t.Fatal("expected uploaded object")
	}
	if obj.Headers.CacheControl != "maxage=31556926" || obj.Headers.ContentEncoding != "gzip" {
		t.Fatalf("unexpected headers %+v", obj.Headers)
	}
	if got := gunzip(t, obj.Body); got != "var app = 1;\nvar vendor = 2;" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestRunSkipsUpToDateAssets(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.write(t, "js/app.js", "1", 1000)
	h.write(t, "img/a.gif", "2", 1000)
	h.store.Seed("js/app.js", time.UnixMilli(1000))
	h.store.Seed("img/a.gif", time.UnixMilli(5000))

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("/js/app.js"), assets.Single("img/a.gif")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.store.TotalPuts() != 0 {
		t.Fatalf("expected no uploads, got %d", h.store.TotalPuts())
	}
	for _, o := range outcomes {
		if o.Decision != staleness.Skip || o.Published {
			t.Fatalf("expected skip, got %+v", o)
		}
	}
}

func TestRunPublishesNestedStylesheetAssetsOnce(t *testing.T) {
	h := newHarness(t, harnessOptions{production: true})
	h.write(t, "css/site.css", "a{background:url(/images/a.png)}b{background-image:url(../img/b.png)}", 10)
	h.write(t, "css/theme.css", "c{background:url(/images/a.png)}", 10)
	h.write(t, "images/a.png", "png-a", 10)
	h.write(t, "img/b.png", "png-b", 10)

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{
		assets.Single("css/site.css"),
		assets.Single("css/theme.css"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %+v", outcomes)
	}
	for _, key := range []string{"images/a.png", "img/b.png"} {
		o := findOutcome(t, outcomes, key)
		if !o.Published || o.Parent == "" {
			t.Fatalf("expected nested publish for %s, got %+v", key, o)
		}
		if h.store.HeadCalls(key) != 1 {
			t.Fatalf("expected one staleness check for %s, got %d", key, h.store.HeadCalls(key))
		}
	}

	obj, _ := h.store.Object("css/site.css")
	if got := gunzip(t, obj.Body); got != "a{background:url(../images/a.png)}b{background-image:url(../img/b.png)}" {
		t.Fatalf("unexpected stylesheet %q", got)
	}
	if got := gunzip(t, mustObject(t, h, "images/a.png")); got != "png-a" {
		t.Fatalf("unexpected nested body %q", got)
	}
}

func mustObject(t *testing.T, h *harness, key string) []byte {
	t.Helper()
	obj, ok := h.store.Object(key)
	if !ok {
		t.Fatalf("missing object %s", key)
	}
	return obj.Body
}

func TestRunOptimizerFailureWithContinueOnFailure(t *testing.T) {
	h := newHarness(t, harnessOptions{continueOnFailure: true, optimizerExit: 1})
	h.write(t, "img/a.png", "original", 10)

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("img/a.png")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := findOutcome(t, outcomes, "img/a.png")
	if !o.Published || !o.Degraded {
		t.Fatalf("expected degraded publish, got %+v", o)
	}
	if got := gunzip(t, mustObject(t, h, "img/a.png")); got != "original" {
		t.Fatalf("expected original bytes, got %q", got)
	}
}

func TestRunOptimizerFailureAbortsWithoutContinueOnFailure(t *testing.T) {
	h := newHarness(t, harnessOptions{optimizerExit: 1})
	h.write(t, "img/a.png", "original", 10)

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("img/a.png")})
	if !errors.Is(err, services.ErrTransform) {
		t.Fatalf("expected transform failure, got %v", err)
	}
	if h.store.TotalPuts() != 0 {
		t.Fatalf("expected no upload, got %d", h.store.TotalPuts())
	}
	if o := findOutcome(t, outcomes, "img/a.png"); o.ErrorKind != services.KindTransform {
		t.Fatalf("expected transform failure outcome, got %+v", o)
	}
}

func TestRunUploadExhaustionAlwaysAborts(t *testing.T) {
	h := newHarness(t, harnessOptions{continueOnFailure: true, uploadAttempts: 2})
	h.write(t, "a.js", "1", 10)
	boom := errors.New("network down")
	h.store.FailPuts("a.js", boom, boom)

	_, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("a.js")})
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if h.store.PutCalls("a.js") != 2 {
		t.Fatalf("expected 2 attempts, got %d", h.store.PutCalls("a.js"))
	}
}

func TestRunRejectsMixedBundleBeforeWork(t *testing.T) {
	h := newHarness(t, harnessOptions{continueOnFailure: true})
	h.write(t, "a.js", "1", 10)
	h.write(t, "b.css", "2", 10)
	h.write(t, "c.js", "3", 10)

	_, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("c.js"), assets.NewBundle("a.js", "b.css")})
	if !errors.Is(err, services.ErrMimeMismatch) {
		t.Fatalf("expected mime mismatch, got %v", err)
	}
	if h.store.HeadCalls("c.js") != 0 {
		t.Fatal("expected no staleness checks after preflight failure")
	}
}

func TestRunContinuesPastMissingAsset(t *testing.T) {
	h := newHarness(t, harnessOptions{continueOnFailure: true})
	h.write(t, "ok.js", "1", 10)

	outcomes, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("missing.js"), assets.Single("ok.js")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o := findOutcome(t, outcomes, "missing.js"); o.ErrorKind != services.KindAssetNotFound {
		t.Fatalf("expected asset not found outcome, got %+v", o)
	}
	if o := findOutcome(t, outcomes, "ok.js"); !o.Published {
		t.Fatalf("expected ok.js published, got %+v", o)
	}
	summary := pipeline.Summarize(outcomes)
	if summary.Failed != 1 || summary.Published != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunLookupFailureIsFatal(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.write(t, "a.js", "1", 10)
	h.store.FailHead("a.js", errors.New("access denied"))

	_, err := h.pipe.Run(context.Background(), []assets.Request{assets.Single("a.js")})
	if !errors.Is(err, services.ErrRemoteLookup) {
		t.Fatalf("expected remote lookup failure, got %v", err)
	}
}

func TestUnchangedImageSkippedAfterInPlaceOptimize(t *testing.T) {
	h := newHarness(t, harnessOptions{executor: inPlaceExecutor{}})
	h.store.SetClock(func() time.Time { return time.Now().Truncate(time.Second) })
	h.write(t, "logo.png", "original", time.Now().Add(-time.Hour).UnixMilli())

	reqs := []assets.Request{assets.Single("/logo.png")}
	first, err := h.pipe.Run(context.Background(), reqs)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if o := findOutcome(t, first, "logo.png"); !o.Published {
		t.Fatalf("expected first run to publish, got %+v", o)
	}

	second, err := h.pipe.Run(context.Background(), reqs)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if o := findOutcome(t, second, "logo.png"); o.Decision != staleness.Skip || o.Published {
		t.Fatalf("expected second run to skip, got %+v", o)
	}
	if got := h.store.PutCalls("logo.png"); got != 1 {
		t.Fatalf("expected a single upload across both runs, got %d", got)
	}
}
