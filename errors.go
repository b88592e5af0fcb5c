package rbac

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rbac/middleware/tokenauth"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
	TextCodeSessionRevoked     = "session_revoked"
	TextCodeSessionNotFound    = "session_not_found"
	TextCodeEmailTaken         = "email_already_registered"
	TextCodeUserNotFound       = "user_not_found"
	TextCodeForbidden          = "insufficient_role"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single undifferentiated credential
// failure: a missing account and a wrong password produce the same value so
// responses never reveal whether the email exists.
var ErrMismatchedHashAndPassword = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned when a token's exp claim has passed
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures and structurally invalid tokens
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when a token verifies cryptographically but
// no longer matches the stored binding: logout, a newer login, or account
// deletion. The message deliberately matches the generic token failure.
var ErrSessionRevoked = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrSessionNotFound signals an unbind for a token no row currently holds.
// Reported, not fatal: logging out twice is not a failure a client needs to
// recover from.
var ErrSessionNotFound = errors.New("no active session for token", errors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailAlreadyRegistered is returned when signup hits a duplicate email
var ErrEmailAlreadyRegistered = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned by user management operations for unknown ids
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrInsufficientRole is returned when the resolved identity's role does not
// authorize the attempted operation
var ErrInsufficientRole = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) || errors.Is(err, jwt.ErrTokenExpired) {
		return true
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired
}

// IsMalformedError will check for structurally invalid or missing tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, tokenauth.ErrTokenMissingOrMalformed) {
		return true
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed
}

// IsUnauthorizedError reports whether err should surface as a 401
func IsUnauthorizedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuth
	}
	return false
}
