package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assetcdn/internal/assets"
	"assetcdn/internal/cssrewrite"
	"assetcdn/internal/fileutil"
	"assetcdn/internal/logging"
	"assetcdn/internal/services"
	"assetcdn/internal/store"
)

// ImageOptimizer optimizes raster images in place.
type ImageOptimizer interface {
	OptimizePNG(ctx context.Context, path string) error
	OptimizeJPEG(ctx context.Context, path string) error
}

// Job is one request to transform.
type Job struct {
	Request  assets.Request
	Type     assets.Type
	FileName string
}

// Result is the transformed payload of a Job.
type Result struct {
	Body    []byte
	Headers store.Headers
	Nested  []cssrewrite.Job
	// Degraded is set when a tolerated failure substituted untransformed bytes.
	Degraded bool
}

// Options configures a Dispatcher.
type Options struct {
	PublicDir         string
	Production        bool
	ContinueOnFailure bool
	DebugDir          string
}

// Dispatcher runs the transform matching a job's mime kind.
type Dispatcher struct {
	opts      Options
	namer     *assets.Namer
	minifier  Minifier
	rewriter  *cssrewrite.Rewriter
	optimizer ImageOptimizer
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithMinifier overrides the minifier.
func WithMinifier(m Minifier) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.minifier = m
		}
	}
}

// WithClock overrides the clock used for Expires headers.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a Dispatcher.
func New(opts Options, optimizer ImageOptimizer, logger *slog.Logger, options ...Option) *Dispatcher {
	d := &Dispatcher{
		opts:      opts,
		namer:     assets.NewNamer(opts.PublicDir),
		minifier:  NewMinifier(),
		rewriter:  cssrewrite.New(opts.PublicDir, opts.Production, logger),
		optimizer: optimizer,
		now:       time.Now,
		logger:    logging.NewComponentLogger(logger, "transform"),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Transform produces the upload payload for job.
func (d *Dispatcher) Transform(ctx context.Context, job Job) (Result, error) {
	var (
		res Result
		err error
	)
	switch job.Type.Kind {
	case assets.KindScript:
		res, err = d.script(ctx, job)
	case assets.KindStylesheet:
		res, err = d.stylesheet(ctx, job)
	case assets.KindPNG:
		res, err = d.image(ctx, job, d.optimizePNG)
	case assets.KindJPEG:
		res, err = d.image(ctx, job, d.optimizeJPEG)
	case assets.KindImage, assets.KindIcon, assets.KindFont:
		res, err = d.passthrough(job)
	default:
		return Result{}, services.Wrap(services.ErrUnsupportedMimeType, "transform", "dispatch",
			fmt.Sprintf("%s (%q)", job.Request, job.Type.Mime), nil)
	}
	if err != nil {
		return Result{}, err
	}
	res.Headers = Headers(job.Type.Mime, d.now())
	return res, nil
}

func (d *Dispatcher) script(ctx context.Context, job Job) (Result, error) {
	texts, err := d.readMembers(job.Request)
	if err != nil {
		return Result{}, err
	}
	joined := strings.Join(texts, "\n")
	d.dumpDebug(ctx, job.FileName, joined)

	minified, err := d.minifier.Minify(job.Type.Mime, joined)
	if err != nil {
		if fatal := d.tolerate(ctx, job, "minify", err); fatal != nil {
			return Result{}, fatal
		}
		return Result{Body: []byte(joined), Degraded: true}, nil
	}
	return Result{Body: []byte(minified)}, nil
}

func (d *Dispatcher) stylesheet(ctx context.Context, job Job) (Result, error) {
	texts, err := d.readMembers(job.Request)
	if err != nil {
		return Result{}, err
	}

	var (
		out      = make([]string, 0, len(texts))
		nested   []cssrewrite.Job
		degraded bool
	)
	for i, text := range texts {
		member := job.Request.Paths[i]
		minified, err := d.minifier.Minify(job.Type.Mime, text)
		if err != nil {
			if fatal := d.tolerate(ctx, job, "minify "+member, err); fatal != nil {
				return Result{}, fatal
			}
			minified = text
			degraded = true
		}
		rewritten := d.rewriter.Rewrite(minified, member, job.FileName)
		out = append(out, rewritten.CSS)
		nested = append(nested, rewritten.Jobs...)
	}
	return Result{Body: []byte(strings.Join(out, "\n")), Nested: nested, Degraded: degraded}, nil
}

func (d *Dispatcher) image(ctx context.Context, job Job, optimize func(context.Context, string) error) (Result, error) {
	source := d.namer.SourcePath(job.Request.Paths[0])
	original, err := os.ReadFile(source)
	if err != nil {
		return Result{}, readError(job.Request.Paths[0], err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return Result{}, readError(job.Request.Paths[0], err)
	}

	err = optimize(ctx, source)
	d.restoreModTime(ctx, source, info.ModTime())
	if err != nil {
		if fatal := d.tolerate(ctx, job, "optimize", err); fatal != nil {
			return Result{}, fatal
		}
		return Result{Body: original, Degraded: true}, nil
	}

	optimized, err := os.ReadFile(source)
	if err != nil {
		return Result{}, readError(job.Request.Paths[0], err)
	}
	return Result{Body: optimized}, nil
}

// restoreModTime puts back the mtime an in-place optimizer bumped, so the
// staleness timestamp only moves when the source is edited.
func (d *Dispatcher) restoreModTime(ctx context.Context, path string, mtime time.Time) {
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Equal(mtime) {
		return
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "restore source mtime failed", "mtime_restore_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "asset republished on the next run"),
		)
	}
}

func (d *Dispatcher) optimizePNG(ctx context.Context, path string) error {
	if d.optimizer == nil {
		return nil
	}
	return d.optimizer.OptimizePNG(ctx, path)
}

func (d *Dispatcher) optimizeJPEG(ctx context.Context, path string) error {
	if d.optimizer == nil {
		return nil
	}
	return d.optimizer.OptimizeJPEG(ctx, path)
}

func (d *Dispatcher) passthrough(job Job) (Result, error) {
	data, err := os.ReadFile(d.namer.SourcePath(job.Request.Paths[0]))
	if err != nil {
		return Result{}, readError(job.Request.Paths[0], err)
	}
	return Result{Body: data}, nil
}

// tolerate returns nil when ContinueOnFailure absorbs err, otherwise the
// wrapped fatal error.
func (d *Dispatcher) tolerate(ctx context.Context, job Job, step string, err error) error {
	logger := logging.WithContext(ctx, d.logger)
	if !d.opts.ContinueOnFailure {
		return services.Wrap(services.ErrTransform, "transform", step, job.FileName, err)
	}
	logging.WarnWithContext(logger, "transform failed, publishing untransformed bytes", "transform_degraded",
		logging.String("step", step),
		logging.String("file", job.FileName),
		logging.Error(err),
		logging.String(logging.FieldImpact, "asset published without minification or optimization"),
		logging.String(logging.FieldErrorHint, "fix the source file or install the optimizer"),
	)
	return nil
}

func (d *Dispatcher) readMembers(req assets.Request) ([]string, error) {
	texts := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		data, err := os.ReadFile(d.namer.SourcePath(p))
		if err != nil {
			return nil, readError(p, err)
		}
		texts = append(texts, string(data))
	}
	return texts, nil
}

func (d *Dispatcher) dumpDebug(ctx context.Context, fileName, text string) {
	if d.opts.DebugDir == "" {
		return
	}
	target := filepath.Join(d.opts.DebugDir, filepath.FromSlash(fileName))
	if err := fileutil.WriteAtomic(target, []byte(text), 0o644); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "debug dump failed", "debug_dump_failed",
			logging.String("path", target),
			logging.Error(err),
			logging.String(logging.FieldImpact, "debug copy of concatenated script not written"),
		)
	}
}

func readError(assetPath string, err error) error {
	if os.IsNotExist(err) {
		return services.Wrap(services.ErrAssetNotFound, "transform", "read", assetPath, err)
	}
	return services.Wrap(services.ErrTransform, "transform", "read", assetPath, err)
}
