package services

import "context"

type contextKey string

const (
	serverKey    contextKey = "server"
	scanPathKey  contextKey = "scan_path"
	jobIDKey     contextKey = "job_id"
	requestIDKey contextKey = "request_id"
)

// WithServer annotates context with the media server name.
func WithServer(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, serverKey, name)
}

// ServerFromContext returns the media server name if present.
func ServerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(serverKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithScanPath annotates context with the library path being rescanned.
func WithScanPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, scanPathKey, path)
}

// ScanPathFromContext returns the scan path if present.
func ScanPathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scanPathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with a background job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the background job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
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
