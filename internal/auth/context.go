package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "userID"
)

// ErrNoUserInContext is returned by GetUserIDFromContext when the
// request context carries no authenticated user id.
var ErrNoUserInContext = errors.New("auth: no user id in context")

// GetUserIDFromContext extracts the user id stamped by AuthMiddleware
// (via SetUserIDInContext) onto the request's context.Context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	if userID, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return userID, nil
	}
	return uuid.UUID{}, ErrNoUserInContext
}

// SetUserIDInContext sets the user id in the context.
func SetUserIDInContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
