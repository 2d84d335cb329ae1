package logging

import (
	"context"
	"log/slog"

	"airlift/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPlatform is the standardized structured logging key for target platform names.
	FieldPlatform = "platform"
	// FieldAssetID is the standardized structured logging key for media asset identifiers.
	FieldAssetID = "asset_id"
	// FieldAccountID is the standardized structured logging key for account identifiers.
	FieldAccountID = "account_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.AssetIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAssetID, id))
	}
	if platform, ok := services.PlatformFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPlatform, platform))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
