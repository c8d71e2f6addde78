package session

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// FromRouterContext extracts the User placed in the router locals by the
// route guard. key defaults to the guard's configured context key.
func FromRouterContext(ctx router.Context, key string) (*User, bool) {
	if key == "" {
		key = "user"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}

// Can is a convenience permission check against the user in the standard
// context. Use CanFromRouter for router-based contexts.
func Can(ctx context.Context, permission Permission) bool {
	user, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return HasPermission(user, permission)
}

// CanFromRouter checks a permission against the user in the router context.
func CanFromRouter(ctx router.Context, permission Permission) bool {
	user, ok := FromRouterContext(ctx, "")
	if !ok {
		return false
	}
	return HasPermission(user, permission)
}
