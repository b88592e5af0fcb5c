package rbac

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the read surface the provider needs to verify credentials
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider verifies credentials against the users store
type UserProvider struct {
	store     UserStore
	Validator func(*User) error
	logger    Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultValidator,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. A missing account and a wrong password return the same error so
// the response shape never reveals which one it was.
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(user.Role),
	}, nil
}

// FindIdentityByIdentifier retrieves an identity without checking credentials
func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(user.Role),
	}, nil
}

type authIdentity struct {
	id    string
	email string
	role  string
	token string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) Token() string {
	return a.token
}

var _ Identity = authIdentity{}

func defaultValidator(u *User) error {
	if !IsValidRole(u.Role) {
		return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
	}
	return nil
}
