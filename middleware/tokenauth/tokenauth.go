// Package tokenauth implements the HTTP auth gate. It extracts the bearer
// token from the request, resolves it through the session-aware resolver
// (signature check plus store binding), and places the resulting identity in
// the router context for downstream handlers.
package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup         = "header:" + router.HeaderAuthorization
	ErrTokenMissingOrMalformed = errors.New("missing or malformed token")
)

// Identity mirrors the rbac.Identity interface without an import cycle
type Identity interface {
	ID() string
	Email() string
	Role() string
	Token() string
}

// SessionResolver validates a presented token and cross-checks it against
// the persisted session binding. This mirrors Authenticator.IdentityFromToken
// from the rbac package; plain signature validation is not enough here, or
// logout would be a no-op against a still-valid token.
type SessionResolver interface {
	IdentityFromToken(ctx context.Context, token string) (Identity, error)
}

type Config struct {
	// Filter defines a function to skip the middleware
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Resolver is required: it performs the double check (signature AND
	// store binding) that makes revocation work
	Resolver SessionResolver

	// ContextKey is the router locals key holding the resolved identity
	ContextKey string

	// TokenLookup defines where to read the token from, e.g.
	// "header:Authorization,query:auth_token"
	TokenLookup string

	// AuthScheme to strip from the header value (default "Bearer")
	AuthScheme string

	// RequiredRole rejects identities whose role is not exactly this value
	RequiredRole string

	// RoleChecker is an optional custom authorization hook, checked against
	// RequiredRole when both are set
	RoleChecker func(Identity, string) bool

	// ContextEnricher propagates the identity into the standard Go context
	// after successful resolution
	ContextEnricher func(c context.Context, identity Identity) context.Context
}

// New returns the auth gate middleware
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			identity, err := cfg.Resolver.IdentityFromToken(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := performAuthorizationChecks(identity, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, identity)

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, identity))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func performAuthorizationChecks(identity Identity, cfg Config) error {
	if cfg.RequiredRole == "" && cfg.RoleChecker == nil {
		return nil
	}

	if cfg.RoleChecker != nil {
		if !cfg.RoleChecker(identity, cfg.RequiredRole) {
			return fmt.Errorf("access denied: custom role check failed for role '%s'", cfg.RequiredRole)
		}
		return nil
	}

	if identity.Role() != cfg.RequiredRole {
		return fmt.Errorf("access denied: required role '%s' not found", cfg.RequiredRole)
	}

	return nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Resolver == nil {
		panic("RBAC: token middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

type TokenExtractor func(c router.Context) (string, error)

// GetExtractors parses a lookup expression like
// "header:Authorization,cookie:token,query:auth_token" into extractors
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrTokenMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
