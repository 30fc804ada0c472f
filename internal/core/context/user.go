// Package context carries request-scoped values: the authenticated caller
// and the trace and request ids.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated caller, taken from the bearer token.
// IsAdmin grants every role.
type UserContext struct {
	UserID  string
	Email   string
	Roles   []string
	IsAdmin bool
}

// Can reports whether the caller holds role.
func (u *UserContext) Can(role string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Roles, role)
}

type userKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns nil for anonymous requests.
func GetUser(ctx context.Context) *UserContext {
	u, _ := ctx.Value(userKey{}).(*UserContext)
	return u
}

// GetUserID returns "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole is GetUser(ctx).Can(role).
func HasRole(ctx context.Context, role string) bool {
	return GetUser(ctx).Can(role)
}
