// Package staleness decides whether a fingerprinted asset must be published
// again by comparing its local timestamp with the remote object's
// last-modified time.
package staleness

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"assetcdn/internal/assets"
	"assetcdn/internal/logging"
	"assetcdn/internal/services"
	"assetcdn/internal/store"
)

// Decision is the outcome of a staleness check.
type Decision string

const (
	Skip      Decision = "skip"
	Republish Decision = "republish"
)

// Result describes one staleness check.
type Result struct {
	Decision     Decision
	Key          string
	Exists       bool
	LastModified time.Time
	Reason       string
}

// Decide applies the staleness table to a local timestamp (unix ms) and the
// remote state.
func Decide(localMs int64, exists bool, remote time.Time) (Decision, string) {
	if !exists {
		return Republish, "remote object missing"
	}
	if localMs <= remote.UnixMilli() {
		return Skip, "remote up to date"
	}
	return Republish, "local copy newer than remote"
}

// Oracle runs staleness checks against a store.
type Oracle struct {
	store  store.Store
	logger *slog.Logger
}

// New constructs an Oracle.
func New(s store.Store, logger *slog.Logger) *Oracle {
	return &Oracle{store: s, logger: logging.NewComponentLogger(logger, "staleness")}
}

// Check looks up key and decides whether name needs publishing. Not-found is a
// Republish signal; any other lookup error is a RemoteLookupFailure.
func (o *Oracle) Check(ctx context.Context, name assets.FingerprintedName, key string) (Result, error) {
	logger := logging.WithContext(ctx, o.logger)

	meta, err := o.store.Head(ctx, key)
	exists := true
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		exists = false
	default:
		logging.ErrorWithContext(logger, "remote lookup failed", "remote_lookup_failed",
			logging.String(logging.FieldStorageKey, key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store credentials, bucket and endpoint"),
		)
		return Result{Key: key}, services.Wrap(services.ErrRemoteLookup, "staleness", "head", key, err)
	}

	decision, reason := Decide(name.Timestamp, exists, meta.LastModified)
	result := Result{
		Decision:     decision,
		Key:          key,
		Exists:       exists,
		LastModified: meta.LastModified,
		Reason:       reason,
	}

	attrs := append(logging.DecisionAttrs("staleness", string(decision), reason),
		logging.String(logging.FieldStorageKey, key),
		logging.Int64("local_ms", name.Timestamp),
	)
	if exists {
		attrs = append(attrs, logging.Int64("remote_ms", meta.LastModified.UnixMilli()))
	}
	logger.Info("staleness decided", logging.Args(attrs...)...)
	return result, nil
}
