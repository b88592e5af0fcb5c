package rbac

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the resolved Identity in the given context
func WithIdentityContext(r context.Context, identity Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the resolved identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterIdentity extracts the resolved identity from the router context
func GetRouterIdentity(ctx router.Context, key string) (Identity, bool) {
	if key == "" {
		key = "identity"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(Identity)
	return identity, ok
}
