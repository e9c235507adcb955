package logging

import (
	"context"
	"log/slog"

	"assetcdn/internal/services"
)

// Standard structured logging keys.
const (
	FieldComponent = "component"
	// FieldAsset is the file name of the asset a line concerns.
	FieldAsset      = "asset"
	FieldStorageKey = "storage_key"
	// FieldCorrelationID carries the publish run ID.
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"

	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

func contextAttrs(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	if asset, ok := services.AssetFromContext(ctx); ok {
		attrs = append(attrs, String(FieldAsset, asset))
	}
	return attrs
}

// WithContext returns logger tagged with the run ID and asset carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
