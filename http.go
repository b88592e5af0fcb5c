package rbac

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rbac/middleware/tokenauth"
	"github.com/goliatone/go-router"
)

// LoginPayload is the credential shape the HTTP layer hands us
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// Middleware builds the gates placed in front of protected routes
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// HTTPAuthenticator adapts the Authenticator to router contexts
type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) (string, Identity, error)
	Logout(c router.Context) error
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

// RouteAuthenticator is the default HTTPAuthenticator
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute requires a resolvable session: signature, expiry, and the
// stored binding all have to line up before the handler runs.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return tokenauth.New(tokenauth.Config{
		ErrorHandler: errorHandler,
		Resolver:     sessionResolverAdapter{auth: a.auth},
		ContextKey:   cfg.GetContextKey(),
		TokenLookup:  cfg.GetTokenLookup(),
		AuthScheme:   cfg.GetAuthScheme(),
		ContextEnricher: func(c context.Context, identity tokenauth.Identity) context.Context {
			return WithIdentityContext(c, identity)
		},
	})
}

// AdminRoute is ProtectedRoute plus an exact role requirement
func (a *RouteAuthenticator) AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return tokenauth.New(tokenauth.Config{
		ErrorHandler: errorHandler,
		Resolver:     sessionResolverAdapter{auth: a.auth},
		ContextKey:   cfg.GetContextKey(),
		TokenLookup:  cfg.GetTokenLookup(),
		AuthScheme:   cfg.GetAuthScheme(),
		RequiredRole: RoleAdmin,
		ContextEnricher: func(c context.Context, identity tokenauth.Identity) context.Context {
			return WithIdentityContext(c, identity)
		},
	})
}

// Login authenticates the payload and returns the freshly bound token
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, Identity, error) {
	token, identity, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return "", nil, err
	}

	return token, identity, nil
}

// Logout releases the session bound to the caller's token. The token comes
// from the authenticated context, not the request body, so only the session
// that passed the gate can be released.
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	identity, ok := GetRouterIdentity(ctx, a.cfg.GetContextKey())
	if !ok {
		return ErrSessionNotFound
	}

	return a.auth.Logout(ctx.Context(), identity.Token())
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if strings.Contains(err.Error(), "access denied") {
			richErr = ErrInsufficientRole
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	return WriteError(c, err)
}

// WriteError renders any error as the JSON error envelope, deriving the
// status code from the rich error's category
func WriteError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		switch richErr.Category {
		case errors.CategoryAuth:
			status = router.StatusUnauthorized
		case errors.CategoryAuthz:
			status = router.StatusForbidden
		case errors.CategoryConflict:
			status = router.StatusConflict
		case errors.CategoryNotFound:
			status = router.StatusNotFound
		case errors.CategoryValidation, errors.CategoryBadInput:
			status = router.StatusBadRequest
		default:
			status = router.StatusInternalServerError
		}
	}

	return ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

// sessionResolverAdapter bridges the Authenticator to the middleware's
// resolver interface
type sessionResolverAdapter struct {
	auth Authenticator
}

func (s sessionResolverAdapter) IdentityFromToken(ctx context.Context, token string) (tokenauth.Identity, error) {
	identity, err := s.auth.IdentityFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
