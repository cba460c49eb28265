// Package reqctx carries per-request identity through context: the request
// id set by the gateway and the chat user id taken from the caller's token.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

type userIDKey struct{}

// NewRequestID generates a random UUID v4 request ID.
func NewRequestID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns "" if ctx carries no request ID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns "" outside an authenticated request.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
