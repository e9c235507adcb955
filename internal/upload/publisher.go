// Package upload compresses transformed assets and writes them to the object
// store, retrying transient failures with exponential backoff.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"assetcdn/internal/logging"
	"assetcdn/internal/services"
	"assetcdn/internal/store"
)

const (
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

// Publisher uploads compressed payloads to a store.
type Publisher struct {
	store            store.Store
	limiter          *rate.Limiter
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
	logger           *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithRetryMaxAttempts overrides the attempt limit (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(p *Publisher) {
		p.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(p *Publisher) {
		p.retryBaseDelay = baseDelay
		p.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Publisher) {
		p.sleeper = sleeper
	}
}

// WithRateLimit caps uploads per second across all jobs sharing the Publisher.
// Zero or negative disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(p *Publisher) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// New constructs a Publisher.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:            s,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		logger:           logging.NewComponentLogger(logger, "upload"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Receipt describes a completed upload.
type Receipt struct {
	Key             string
	Attempts        int
	RawBytes        int
	CompressedBytes int
}

// Publish gzips body and uploads it under key with the given headers.
// Exhausting the attempts yields an UploadFailure.
func (p *Publisher) Publish(ctx context.Context, key string, body []byte, headers store.Headers) (Receipt, error) {
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldStorageKey, key))

	compressed, err := Compress(body)
	if err != nil {
		return Receipt{Key: key}, services.Wrap(services.ErrUpload, "upload", "compress", key, err)
	}
	headers.ContentEncoding = "gzip"

	attempts := p.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Receipt{Key: key, Attempts: attempt - 1}, services.Wrap(services.ErrUpload, "upload", "rate limit", key, err)
			}
		}

		err := p.store.Put(ctx, key, compressed, headers)
		if err == nil {
			logger.Info("object published",
				logging.Int("attempts", attempt),
				logging.Int("raw_bytes", len(body)),
				logging.Int("gzip_bytes", len(compressed)),
				logging.String("content_type", headers.ContentType),
			)
			return Receipt{Key: key, Attempts: attempt, RawBytes: len(body), CompressedBytes: len(compressed)}, nil
		}
		lastErr = err

		if !store.IsRetryable(err) {
			return Receipt{Key: key, Attempts: attempt}, services.Wrap(services.ErrUpload, "upload", "put",
				fmt.Sprintf("%s: non-retryable", key), err)
		}
		if attempt == attempts {
			break
		}

		delay := p.backoffDelay(attempt)
		logging.WarnWithContext(logger, "upload attempt failed, retrying", "upload_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "upload delayed"),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return Receipt{Key: key, Attempts: attempt}, services.Wrap(services.ErrUpload, "upload", "put", key, err)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	logging.ErrorWithContext(logger, "upload failed", "upload_failed",
		logging.Int("attempts", attempts),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "check store connectivity and permissions"),
	)
	return Receipt{Key: key, Attempts: attempts}, services.Wrap(services.ErrUpload, "upload", "put",
		fmt.Sprintf("%s: failed after %d attempts", key, attempts), lastErr)
}

// Compress gzips data at the default level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Publisher) retryAttempts() int {
	if p.retryMaxAttempts <= 0 {
		return 1
	}
	return p.retryMaxAttempts
}

func (p *Publisher) backoffDelay(attempt int) time.Duration {
	base := p.retryBaseDelay
	maxDelay := p.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p *Publisher) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
