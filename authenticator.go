package rbac

import (
	"context"
	"reflect"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionResolver is the atomic read the auth gate relies on: the row must
// match both the id from the verified claims and the exact presented token.
type SessionResolver interface {
	GetByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*User, error)
}

// Auther implements Authenticator: it verifies credentials, mints tokens,
// binds them as the user's one live session, and resolves presented tokens
// back into identities.
type Auther struct {
	provider     IdentityProvider
	sessions     *SessionBinder
	resolver     SessionResolver
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, sessions *SessionBinder, resolver SessionResolver, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		jwt.ClaimStrings(opts.GetAudience()),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		sessions:     sessions,
		resolver:     resolver,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service, mostly for tests
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials, mints a token, and binds it as the user's
// current session. Any previously bound token stops resolving the moment
// the new binding lands.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, Identity, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return "", nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", nil, ErrIdentityNotFound
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login token generation error", "error", err)
		return "", nil, err
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "identity id is not a valid uuid")
	}

	if err := s.sessions.Bind(ctx, uid, token); err != nil {
		s.logger.Error("Login session bind error", "error", err)
		return "", nil, err
	}

	return token, authIdentity{
		id:    identity.ID(),
		email: identity.Email(),
		role:  identity.Role(),
		token: token,
	}, nil
}

// Logout releases the session bound to the presented token. A token with no
// binding returns ErrSessionNotFound; callers report it, nothing more.
func (s *Auther) Logout(ctx context.Context, token string) error {
	return s.sessions.Unbind(ctx, token)
}

// IdentityFromToken is the auth gate. It checks signature and expiry first
// with no store access, then requires the stored binding to match the exact
// presented token in one atomic read. A cryptographically valid token whose
// binding is gone (logout, a newer login, account deletion) is rejected the
// same way as a forged one.
func (s *Auther) IdentityFromToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}

	uid, err := uuid.Parse(claims.UserID())
	if err != nil {
		s.logger.Error("IdentityFromToken claims carry a non-uuid subject", "uid", claims.UserID())
		return nil, ErrTokenMalformed
	}

	user, err := s.resolver.GetByIDAndToken(ctx, uid, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrSessionRevoked
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve session binding")
	}

	if user == nil {
		return nil, ErrSessionRevoked
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(user.Role),
		token: token,
	}, nil
}

var _ Authenticator = (*Auther)(nil)
