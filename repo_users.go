package rbac

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ClearTokenSQL = `UPDATE "users" AS "usr"
SET
	"current_token" = NULL,
	"updated_at" = ?
WHERE
	"usr"."current_token" = ?;`

// Users is the credential store adapter: parameterized access to the users
// table, one statement per operation.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	StoreToken(ctx context.Context, id uuid.UUID, token string) error
	ClearToken(ctx context.Context, token string) error

	ListUsers(ctx context.Context) ([]*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// ProfileChanges carries the optional fields of a partial profile update.
// Nil means leave the column alone.
type ProfileChanges struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone_number,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// IsEmpty reports whether the update would touch no columns
func (p ProfileChanges) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil && p.Address == nil
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

// GetByIDAndToken is the auth gate read: the row must match both the id and
// the exact presented token in a single statement, so a superseded or
// cleared token can never resolve.
func (a *users) GetByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*User, error) {
	record := &User{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.current_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) EmailTaken(ctx context.Context, email string) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) StoreToken(ctx context.Context, id uuid.UUID, token string) error {
	now := time.Now()
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("current_token = ?", token).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) ClearToken(ctx context.Context, token string) error {
	res, err := a.db.ExecContext(ctx, ClearTokenSQL, time.Now(), token)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (a *users) ListUsers(ctx context.Context) ([]*User, error) {
	var records []*User

	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*User, error) {
	q := a.db.NewUpdate().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id)

	if changes.FirstName != nil {
		q = q.Set("first_name = ?", *changes.FirstName)
	}
	if changes.LastName != nil {
		q = q.Set("last_name = ?", *changes.LastName)
	}
	if changes.Phone != nil {
		q = q.Set("phone_number = ?", *changes.Phone)
	}
	if changes.Address != nil {
		q = q.Set("address = ?", *changes.Address)
	}

	res, err := q.Set("updated_at = ?", time.Now()).Exec(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		return nil, ErrUserNotFound
	}

	record := &User{}
	if err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Role == "" {
		record.Role = RoleUser
	}
	record.Email = strings.TrimSpace(record.Email)
}

func isNoRows(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) {
		return true
	}
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches the driver error text for both supported
// dialects. sqlite reports "UNIQUE constraint failed", postgres reports
// SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
