package rbac_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	rbac "github.com/goliatone/go-rbac"
	"github.com/stretchr/testify/assert"
)

func TestJWTClaims(t *testing.T) {
	now := time.Now()

	claims := &rbac.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-id",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Hour)),
		},
		UID:      "user-id",
		UserRole: rbac.RoleAdmin,
	}

	t.Run("uid wins over subject", func(t *testing.T) {
		assert.Equal(t, "subject-id", claims.Subject())
		assert.Equal(t, "user-id", claims.UserID())
	})

	t.Run("subject backfills a missing uid", func(t *testing.T) {
		legacy := &rbac.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", legacy.UserID())
	})

	t.Run("role checks", func(t *testing.T) {
		assert.Equal(t, rbac.RoleAdmin, claims.Role())
		assert.True(t, claims.HasRole(rbac.RoleAdmin))
		assert.False(t, claims.HasRole(rbac.RoleUser))
		assert.True(t, claims.IsAtLeast(rbac.RoleUser))
		assert.True(t, claims.IsAtLeast(rbac.RoleAdmin))
	})

	t.Run("timestamps", func(t *testing.T) {
		assert.WithinDuration(t, now, claims.IssuedAt(), time.Second)
		assert.WithinDuration(t, now.Add(2*time.Hour), claims.Expires(), time.Second)
	})

	t.Run("zero timestamps when claims omit them", func(t *testing.T) {
		bare := &rbac.JWTClaims{}
		assert.True(t, bare.Expires().IsZero())
		assert.True(t, bare.IssuedAt().IsZero())
	})
}
