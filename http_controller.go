package rbac

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// APIController exposes the backend's JSON operations: signup, login,
// logout, user management, and report CRUD
type APIController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       HTTPAuthenticator
	Config       Config
	ErrorHandler router.ErrorHandler
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in api controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in api controller...")
	}

	if c.Config == nil {
		panic("Missing Config in api controller...")
	}

	return c
}

func (a *APIController) WithLogger(logger Logger) *APIController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// RegisterRoutes wires the API surface. Logout sits behind the gate on
// purpose: the token to release comes from the authenticated context, never
// from the request body.
func RegisterRoutes[T any](app router.Router[T], opts ...APIControllerOption) {

	controller := NewAPIController(opts...)
	cfg := controller.Config

	protected := controller.Auther.ProtectedRoute(cfg, controller.Auther.MakeClientRouteAuthErrorHandler(false))
	admin := controller.Auther.AdminRoute(cfg, controller.Auther.MakeClientRouteAuthErrorHandler(false))

	app.Post("/auth/signup", controller.SignupPost).SetName("auth.signup")
	app.Post("/auth/login", controller.LoginPost).SetName("auth.login")
	app.Post("/auth/logout", controller.LogoutPost, protected).SetName("auth.logout")

	app.Get("/users", controller.UsersIndex, admin).SetName("users.index")
	app.Post("/users/:id", controller.UserUpdate, protected).SetName("users.update")
	app.Delete("/users/:id", controller.UserDelete, admin).SetName("users.delete")
	app.Get("/users/:id/reports", controller.UserReportsIndex, protected).SetName("users.reports")

	app.Post("/reports", controller.ReportCreate, protected).SetName("reports.create")
}

// SignupRequest is the registration payload. Role defaults to "user";
// validation happens in RegisterUserMessage before any store access.
type SignupRequest struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Phone     string `form:"phone_number" json:"phone_number"`
	Address   string `form:"address" json:"address"`
	Password  string `form:"password" json:"password"`
	Role      string `form:"role" json:"role"`
}

func (a *APIController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if a.Debug {
		a.Logger.Debug("signup payload", "payload", print.MaybePrettyJSON(payload))
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Address:   payload.Address,
		Role:      payload.Role,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("signup execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user_id": res.UserID,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *APIController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"message":    "invalid login payload",
				"validation": FormatValidationErrorToMap(err),
			},
		})
	}

	token, identity, err := a.Auther.Login(ctx, payload)
	if err != nil {
		if IsUnauthorizedError(err) {
			// every credential failure renders the same way, so the
			// response shape never reveals whether the email exists
			return a.ErrorHandler(ctx, ErrMismatchedHashAndPassword)
		}
		a.Logger.Error("login execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"identity": map[string]any{
			"id":    identity.ID(),
			"email": identity.Email(),
			"role":  identity.Role(),
		},
	})
}

func (a *APIController) LogoutPost(ctx router.Context) error {
	if err := a.Auther.Logout(ctx); err != nil {
		if goerrors.Is(err, ErrSessionNotFound) {
			// logging out twice is not a user visible failure
			return ctx.JSON(router.StatusOK, map[string]any{
				"message": "Already logged out",
			})
		}
		a.Logger.Error("logout", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out successfully",
	})
}

func (a *APIController) UsersIndex(ctx router.Context) error {
	records, err := a.Repo.Users().ListUsers(ctx.Context())
	if err != nil {
		a.Logger.Error("users index", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": records,
	})
}

func (a *APIController) UserUpdate(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	identity, ok := GetRouterIdentity(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrSessionRevoked)
	}

	if !CanManageUser(identity, id.String()) {
		return a.ErrorHandler(ctx, ErrInsufficientRole)
	}

	payload := new(ProfileChanges)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if payload.IsEmpty() {
		return a.ErrorHandler(ctx, goerrors.New("no fields to update", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	record, err := a.Repo.Users().UpdateProfile(ctx.Context(), id, *payload)
	if err != nil {
		a.Logger.Error("user update", "error", err, "user_id", id.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    record,
	})
}

func (a *APIController) UserDelete(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	if err := a.Repo.Users().DeleteByID(ctx.Context(), id); err != nil {
		a.Logger.Error("user delete", "error", err, "user_id", id.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "User deleted successfully",
	})
}

func (a *APIController) UserReportsIndex(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	identity, ok := GetRouterIdentity(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrSessionRevoked)
	}

	if !CanManageUser(identity, id.String()) {
		return a.ErrorHandler(ctx, ErrInsufficientRole)
	}

	records, err := a.Repo.Reports().ListByUser(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("user reports", "error", err, "user_id", id.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"reports": records,
	})
}

// CreateReportRequest is the report submission payload
type CreateReportRequest struct {
	Title   string `form:"report_title" json:"report_title"`
	Content string `form:"report_content" json:"report_content"`
	Status  string `form:"status" json:"status"`
}

// Validate will run validation rules
func (r CreateReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&r.Content, validation.Length(0, 10000)),
		validation.Field(&r.Status, validation.In(
			ReportStatusDraft,
			ReportStatusSubmitted,
			ReportStatusApproved,
			ReportStatusRejected,
		)),
	)
}

func (a *APIController) ReportCreate(ctx router.Context) error {
	identity, ok := GetRouterIdentity(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrSessionRevoked)
	}

	payload := new(CreateReportRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"message":    "invalid report payload",
				"validation": FormatValidationErrorToMap(err),
			},
		})
	}

	ownerID, err := uuid.Parse(identity.ID())
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "identity id is not a valid uuid"))
	}

	record, err := a.Repo.Reports().Submit(ctx.Context(), &Report{
		UserID:  ownerID,
		Title:   payload.Title,
		Content: payload.Content,
		Status:  payload.Status,
	})
	if err != nil {
		a.Logger.Error("report create", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message":   "Report created successfully",
		"report_id": record.ID,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}
