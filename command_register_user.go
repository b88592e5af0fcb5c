package rbac

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Address   string `json:"address"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`

	OnResponse func(*RegisterUserResponse) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules before any store access
func (e RegisterUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&e.Role, validation.In(RoleUser, RoleAdmin)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if e.Phone != "" {
		num, perr := phonenumbers.Parse(e.Phone, "US")
		if perr != nil || !phonenumbers.IsValidNumber(num) {
			return goerrors.New("invalid phone number", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"phone_number": e.Phone})
		}
	}

	return nil
}

type RegisterUserResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Pre-check keeps the common duplicate case a clean conflict; the
		// unique constraint on email remains the authoritative guard for
		// the race between check and insert.
		taken, err := h.repo.Users().EmailTaken(ctx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrEmailAlreadyRegistered
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.Address = event.Address
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Role = event.Role
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			// the unique index catches the race the pre-check missed;
			// anything else is a store failure, not a conflict
			if isUniqueViolation(err) {
				return ErrEmailAlreadyRegistered
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{UserID: user.ID})
	}

	return nil
}
