package rbac

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash. The salt is generated per
// call, so hashing the same plaintext twice yields two different strings.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. A mismatch returns the generic credential error; a
// stored hash bcrypt cannot parse is corrupt data and surfaces as an
// internal error instead.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "stored password hash is malformed")
	}
	return nil
}
