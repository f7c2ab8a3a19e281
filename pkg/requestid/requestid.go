package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey int

const requestIDKey contextKey = iota

// Generate returns a new unique request ID.
func Generate() string {
	return uuid.NewString()
}

// ToContext injects the request ID into the context.
func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext extracts the request ID from the context.
// Returns empty string if not found.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContextPtr returns the request ID as a pointer, or nil if absent.
// Useful for optional API response fields.
func FromContextPtr(ctx context.Context) *string {
	if id := FromContext(ctx); id != "" {
		return &id
	}
	return nil
}

// FromRequest extracts the request ID from the HTTP request's context.
func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
