package rbac_test

import (
	"context"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	rbac "github.com/goliatone/go-rbac"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessionStore holds the current_token column in memory, mirroring the
// users repository contract: one binding per user, cleared by exact token.
type fakeSessionStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*rbac.User
	tokens map[uuid.UUID]string
}

func newFakeSessionStore(seed ...*rbac.User) *fakeSessionStore {
	s := &fakeSessionStore{
		users:  map[uuid.UUID]*rbac.User{},
		tokens: map[uuid.UUID]string{},
	}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeSessionStore) StoreToken(_ context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[id] = token
	return nil
}

func (s *fakeSessionStore) ClearToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, bound := range s.tokens {
		if bound == token {
			delete(s.tokens, id)
			return nil
		}
	}
	return rbac.ErrSessionNotFound
}

func (s *fakeSessionStore) GetByIDAndToken(_ context.Context, id uuid.UUID, token string) (*rbac.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bound, ok := s.tokens[id]; ok && bound == token {
		user := s.users[id]
		user.CurrentToken = &bound
		return user, nil
	}
	return nil, goerrors.New("record not found", goerrors.CategoryNotFound)
}

func (s *fakeSessionStore) GetByEmail(_ context.Context, email string) (*rbac.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, goerrors.New("record not found", goerrors.CategoryNotFound)
}

func TestSingleSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	hash, err := rbac.HashPassword("secure-password")
	require.NoError(t, err)

	user := &rbac.User{
		ID:           uuid.New(),
		Email:        "seven@example.com",
		Role:         rbac.RoleUser,
		PasswordHash: hash,
	}

	store := newFakeSessionStore(user)
	provider := rbac.NewUserProvider(store)
	auther := rbac.NewAuthenticator(provider, rbac.NewSessionBinder(store), store, newMockConfig())

	t.Run("a second login supersedes the first session", func(t *testing.T) {
		first, _, err := auther.Login(ctx, "seven@example.com", "secure-password")
		require.NoError(t, err)

		_, err = auther.IdentityFromToken(ctx, first)
		require.NoError(t, err)

		second, _, err := auther.Login(ctx, "seven@example.com", "secure-password")
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		// the superseded token still verifies cryptographically but its
		// binding is gone
		_, err = auther.IdentityFromToken(ctx, first)
		assert.ErrorIs(t, err, rbac.ErrSessionRevoked)

		identity, err := auther.IdentityFromToken(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
	})

	t.Run("logout revokes the live session", func(t *testing.T) {
		token, _, err := auther.Login(ctx, "seven@example.com", "secure-password")
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, token))

		_, err = auther.IdentityFromToken(ctx, token)
		assert.ErrorIs(t, err, rbac.ErrSessionRevoked)
	})

	t.Run("logging out twice reports session not found", func(t *testing.T) {
		token, _, err := auther.Login(ctx, "seven@example.com", "secure-password")
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, token))
		assert.ErrorIs(t, auther.Logout(ctx, token), rbac.ErrSessionNotFound)
	})
}
