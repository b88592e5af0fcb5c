package rbac

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionStore is the slice of the users repository the binder needs
type SessionStore interface {
	StoreToken(ctx context.Context, id uuid.UUID, token string) error
	ClearToken(ctx context.Context, token string) error
}

// SessionBinder persists the association between a user and their one live
// token. Binding overwrites whatever token was there before, which is what
// revokes the previous session on a new login.
type SessionBinder struct {
	store  SessionStore
	logger Logger
}

// NewSessionBinder creates a binder over the given store
func NewSessionBinder(store SessionStore) *SessionBinder {
	return &SessionBinder{
		store:  store,
		logger: defLogger{},
	}
}

func (b *SessionBinder) WithLogger(logger Logger) *SessionBinder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Bind overwrites the user's stored token. Last writer wins: two concurrent
// logins race and the later write determines the live session.
func (b *SessionBinder) Bind(ctx context.Context, userID uuid.UUID, token string) error {
	if token == "" {
		return errors.New("refusing to bind an empty token", errors.CategoryInternal)
	}

	if err := b.store.StoreToken(ctx, userID, token); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist session token")
	}

	return nil
}

// Unbind clears the binding for the row holding exactly this token. A token
// no row holds yields ErrSessionNotFound, which callers report rather than
// treat as fatal.
func (b *SessionBinder) Unbind(ctx context.Context, token string) error {
	if token == "" {
		return ErrSessionNotFound
	}

	err := b.store.ClearToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			b.logger.Debug("unbind for a token with no active session")
			return ErrSessionNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear session token")
	}

	return nil
}
