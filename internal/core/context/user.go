// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext identifies the authenticated caller of a request.
type UserContext struct {
	UserID        int64
	Username      string
	PrimaryBodyID *int64
	TokenID       int64
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context, nil for anonymous requests.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or zero.
func GetUserID(ctx context.Context) int64 {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return 0
}

// IsAuthenticated reports whether a user is attached to the context.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}
