package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"assetcdn/internal/assets"
	"assetcdn/internal/cssrewrite"
	"assetcdn/internal/logging"
	"assetcdn/internal/services"
	"assetcdn/internal/staleness"
	"assetcdn/internal/store"
	"assetcdn/internal/transform"
	"assetcdn/internal/upload"
)

const defaultConcurrency = 8

// Checker decides whether a fingerprinted asset is stale.
type Checker interface {
	Check(ctx context.Context, name assets.FingerprintedName, key string) (staleness.Result, error)
}

// Transformer produces upload payloads.
type Transformer interface {
	Transform(ctx context.Context, job transform.Job) (transform.Result, error)
}

// Uploader writes payloads to the store.
type Uploader interface {
	Publish(ctx context.Context, key string, body []byte, headers store.Headers) (upload.Receipt, error)
}

// Options configures a Pipeline.
type Options struct {
	Prefix            string
	Concurrency       int
	ContinueOnFailure bool
}

// Pipeline publishes requests concurrently.
type Pipeline struct {
	opts     Options
	namer    *assets.Namer
	checker  Checker
	dispatch Transformer
	uploader Uploader
	logger   *slog.Logger
}

// New constructs a Pipeline.
func New(opts Options, namer *assets.Namer, checker Checker, dispatch Transformer, uploader Uploader, logger *slog.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Pipeline{
		opts:     opts,
		namer:    namer,
		checker:  checker,
		dispatch: dispatch,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

type run struct {
	p        *Pipeline
	group    *errgroup.Group
	ctx      context.Context
	sem      *semaphore.Weighted
	mu       sync.Mutex
	seen     map[string]struct{}
	outcomes []Outcome
}

// Run publishes reqs and every asset their stylesheets reference. It returns
// once all jobs reached a terminal state. A non-nil error means the run was
// aborted; the outcomes gathered so far are still returned.
func (p *Pipeline) Run(ctx context.Context, reqs []assets.Request) ([]Outcome, error) {
	logger := logging.WithContext(ctx, p.logger)

	for _, req := range reqs {
		if _, err := p.namer.Type(req); errors.Is(err, services.ErrMimeMismatch) {
			logging.ErrorWithContext(logger, "bundle rejected before publish", "bundle_mime_mismatch",
				logging.String("request", req.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "bundle only files of the same type"),
			)
			return nil, err
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	r := &run{
		p:     p,
		group: group,
		ctx:   gctx,
		sem:   semaphore.NewWeighted(int64(p.opts.Concurrency)),
		seen:  make(map[string]struct{}, len(reqs)),
	}

	logger.Info("publish run started",
		logging.Int("requests", len(reqs)),
		logging.Int("concurrency", p.opts.Concurrency),
		logging.Bool("continue_on_failure", p.opts.ContinueOnFailure),
	)

	for _, req := range reqs {
		r.submit(req, "")
	}
	err := group.Wait()

	r.mu.Lock()
	outcomes := append([]Outcome(nil), r.outcomes...)
	r.mu.Unlock()

	summary := Summarize(outcomes)
	attrs := []logging.Attr{
		logging.Int("total", summary.Total),
		logging.Int("published", summary.Published),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("nested", summary.Nested),
	}
	if err != nil {
		logging.ErrorWithContext(logger, "publish run aborted", "publish_aborted",
			append(attrs, logging.Error(err), logging.String(logging.FieldErrorHint, "no manifest is written for an aborted run"))...)
		return outcomes, err
	}
	logger.Info("publish run finished", logging.Args(attrs...)...)
	return outcomes, nil
}

// submit schedules req unless its storage key was already scheduled.
func (r *run) submit(req assets.Request, parent string) {
	fileName := assets.FileName(req)
	key := assets.StorageKey(r.p.opts.Prefix, fileName)

	r.mu.Lock()
	if _, ok := r.seen[key]; ok {
		r.mu.Unlock()
		return
	}
	r.seen[key] = struct{}{}
	idx := len(r.outcomes)
	r.outcomes = append(r.outcomes, Outcome{Request: req, FileName: fileName, Key: key, Parent: parent})
	r.mu.Unlock()

	r.group.Go(func() error {
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			r.fail(idx, err)
			return nil
		}
		defer r.sem.Release(1)

		ctx := services.WithAsset(r.ctx, fileName)
		err := r.process(ctx, idx, req, fileName, key)
		if err == nil {
			return nil
		}
		r.fail(idx, err)
		if r.p.fatal(err) {
			return err
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.p.logger), "job failed, run continues", "job_failed",
			logging.String(logging.FieldStorageKey, key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "asset not published"),
		)
		return nil
	})
}

func (r *run) process(ctx context.Context, idx int, req assets.Request, fileName, key string) error {
	typ, err := r.p.namer.Type(req)
	if err != nil {
		return err
	}
	name, err := r.p.namer.Name(req)
	if err != nil {
		return err
	}
	r.update(idx, func(o *Outcome) { o.Timestamp = name.Timestamp })

	decision, err := r.p.checker.Check(ctx, name, key)
	if err != nil {
		return err
	}
	r.update(idx, func(o *Outcome) { o.Decision = decision.Decision })
	if decision.Decision == staleness.Skip {
		return nil
	}

	res, err := r.p.dispatch.Transform(ctx, transform.Job{Request: req, Type: typ, FileName: fileName})
	if err != nil {
		return err
	}
	r.submitNested(ctx, res.Nested, fileName)

	receipt, err := r.p.uploader.Publish(ctx, key, res.Body, res.Headers)
	r.update(idx, func(o *Outcome) {
		o.Attempts = receipt.Attempts
		o.RawBytes = receipt.RawBytes
		o.GzipBytes = receipt.CompressedBytes
		o.Degraded = res.Degraded
	})
	if err != nil {
		return err
	}
	r.update(idx, func(o *Outcome) { o.Published = true })
	return nil
}

func (r *run) submitNested(ctx context.Context, jobs []cssrewrite.Job, parent string) {
	logger := logging.WithContext(ctx, r.p.logger)
	for _, job := range jobs {
		logger.Debug("nested asset queued",
			logging.String("nested", job.Request.String()),
			logging.String("reference", job.URL),
		)
		r.submit(job.Request, parent)
	}
}

func (r *run) update(idx int, fn func(*Outcome)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.outcomes[idx])
}

func (r *run) fail(idx int, err error) {
	r.update(idx, func(o *Outcome) {
		o.ErrorKind = services.Kind(err)
		o.Error = err.Error()
	})
}

// fatal reports whether err aborts the whole run.
func (p *Pipeline) fatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch services.Kind(err) {
	case services.KindUpload, services.KindMimeMismatch:
		return true
	}
	return !p.opts.ContinueOnFailure
}
