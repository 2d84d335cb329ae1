package services

import "context"

type contextKey string

const (
	assetIDKey   contextKey = "asset_id"
	platformKey  contextKey = "platform"
	requestIDKey contextKey = "request_id"
)

// WithAssetID annotates context with the media asset identifier.
func WithAssetID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, assetIDKey, id)
}

// AssetIDFromContext extracts the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPlatform annotates context with the target platform name.
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}
	return context.WithValue(ctx, platformKey, platform)
}

// PlatformFromContext returns the platform name if present.
func PlatformFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(platformKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
