// Package authctx carries the authenticated principal through a request context.
package authctx

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// Principal represents an authenticated user.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom retrieves the authenticated principal, or nil when the
// context belongs to an unauthenticated request.
func PrincipalFrom(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}

// UserID is a convenience accessor; it returns uuid.Nil when no principal
// is attached.
func UserID(ctx context.Context) uuid.UUID {
	if p := PrincipalFrom(ctx); p != nil {
		return p.UserID
	}
	return uuid.Nil
}
