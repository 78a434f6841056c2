package core

import "context"

type requestIDKey struct{}

// WithRequestID attaches the ID of the API request that started the work.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID carried by ctx, or "" for work that did
// not come from an API request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LogAttrs returns slog key-value pairs identifying the request behind ctx.
func LogAttrs(ctx context.Context) []any {
	if id := RequestID(ctx); id != "" {
		return []any{"request_id", id}
	}
	return nil
}
