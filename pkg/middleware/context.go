// Package middleware provides HTTP middleware shared by every route: request
// ids, per-caller rate limiting and access logging.
package middleware

import "context"

// contextKey is a private type for context keys.
type contextKey int

const requestIDContextKey contextKey = iota

// WithRequestID adds a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext retrieves the request id from the context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}
