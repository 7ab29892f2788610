// Package domain provides core business types and context helpers for Sofra.
//
// The domain package has no dependencies on transport or storage. Services
// and handlers depend on the interfaces and types defined here.
package domain

import (
	"context"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey contextKey = iota

	// sessionTokenContextKey stores the cart session token for the request.
	sessionTokenContextKey
)

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// --- Session Token Context Helpers ---

// NewContextWithSessionToken returns a new context with the cart session
// token attached.
func NewContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}

// SessionTokenFromContext retrieves the cart session token from context.
// Returns empty string if no session token is present.
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey).(string)
	return token
}

// HasSession returns true if there is a session token in context.
func HasSession(ctx context.Context) bool {
	return SessionTokenFromContext(ctx) != ""
}
