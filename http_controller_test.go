package rbac_test

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	rbac "github.com/goliatone/go-rbac"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoginRequest(t *testing.T) {
	t.Run("exposes identifier and password", func(t *testing.T) {
		req := rbac.LoginRequest{Email: "kim@example.com", Password: "secure-password"}
		assert.Equal(t, "kim@example.com", req.GetIdentifier())
		assert.Equal(t, "secure-password", req.GetPassword())
	})

	t.Run("valid payload passes", func(t *testing.T) {
		req := rbac.LoginRequest{Email: "kim@example.com", Password: "secure-password"}
		assert.NoError(t, req.Validate())
	})

	tests := []struct {
		name string
		req  rbac.LoginRequest
	}{
		{"missing email", rbac.LoginRequest{Password: "secure-password"}},
		{"malformed email", rbac.LoginRequest{Email: "not-an-email", Password: "secure-password"}},
		{"missing password", rbac.LoginRequest{Email: "kim@example.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.req.Validate())
		})
	}
}

func TestCreateReportRequest(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		req := rbac.CreateReportRequest{
			Title:   "Warp core diagnostics",
			Content: "All within tolerance.",
			Status:  rbac.ReportStatusSubmitted,
		}
		assert.NoError(t, req.Validate())
	})

	t.Run("status is optional", func(t *testing.T) {
		req := rbac.CreateReportRequest{Title: "Warp core diagnostics"}
		assert.NoError(t, req.Validate())
	})

	t.Run("missing title fails", func(t *testing.T) {
		req := rbac.CreateReportRequest{Content: "orphaned content"}
		assert.Error(t, req.Validate())
	})

	t.Run("unknown status fails", func(t *testing.T) {
		req := rbac.CreateReportRequest{Title: "Warp core diagnostics", Status: "archived"}
		assert.Error(t, req.Validate())
	})
}

// stubHTTPAuther satisfies HTTPAuthenticator for controller tests
type stubHTTPAuther struct {
	token    string
	identity rbac.Identity
	loginErr error
}

func passthroughMiddleware(next router.HandlerFunc) router.HandlerFunc { return next }

func (s *stubHTTPAuther) ProtectedRoute(cfg rbac.Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return passthroughMiddleware
}

func (s *stubHTTPAuther) AdminRoute(cfg rbac.Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return passthroughMiddleware
}

func (s *stubHTTPAuther) Login(c router.Context, payload rbac.LoginPayload) (string, rbac.Identity, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return s.token, s.identity, nil
}

func (s *stubHTTPAuther) Logout(c router.Context) error { return nil }

func (s *stubHTTPAuther) MakeClientRouteAuthErrorHandler(optional bool) func(c router.Context, err error) error {
	return func(c router.Context, err error) error { return err }
}

func newLoginController(auther rbac.HTTPAuthenticator) *rbac.APIController {
	return rbac.NewAPIController(func(c *rbac.APIController) *rbac.APIController {
		c.Repo = &stubRepoManager{users: &stubUsersRepo{}}
		c.Auther = auther
		c.Config = newMockConfig()
		return c
	})
}

func newLoginContext(email, password string) (ctx *MockContext, status *int, body *map[string]any) {
	ctx = new(MockContext)
	status = new(int)
	body = new(map[string]any)

	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*rbac.LoginRequest)
		payload.Email = email
		payload.Password = password
	}).Return(nil)

	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*status = args.Int(0)
		*body, _ = args.Get(1).(map[string]any)
	}).Return(nil)

	return ctx, status, body
}

func TestLoginPost(t *testing.T) {
	t.Run("valid credentials return the token", func(t *testing.T) {
		identity := newTestIdentity(uuid.New(), "kim@example.com", rbac.RoleUser)
		controller := newLoginController(&stubHTTPAuther{token: "signed-token", identity: identity})

		ctx, status, body := newLoginContext("kim@example.com", "secure-password")
		require.NoError(t, controller.LoginPost(ctx))

		assert.Equal(t, router.StatusOK, *status)
		assert.Equal(t, "signed-token", (*body)["token"])
	})

	t.Run("credential failures all render the same 401", func(t *testing.T) {
		controller := newLoginController(&stubHTTPAuther{loginErr: rbac.ErrIdentityNotFound})

		ctx, status, body := newLoginContext("kim@example.com", "wrong-password")
		require.NoError(t, controller.LoginPost(ctx))

		assert.Equal(t, router.StatusUnauthorized, *status)
		errBody, ok := (*body)["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, rbac.ErrMismatchedHashAndPassword.Message, errBody["message"])
		assert.Equal(t, rbac.TextCodeInvalidCredentials, errBody["text_code"])
	})

	t.Run("store failures surface as server errors, not bad credentials", func(t *testing.T) {
		controller := newLoginController(&stubHTTPAuther{
			loginErr: goerrors.New("connection refused", goerrors.CategoryInternal).
				WithCode(goerrors.CodeInternal),
		})

		ctx, status, body := newLoginContext("kim@example.com", "secure-password")
		require.NoError(t, controller.LoginPost(ctx))

		assert.Equal(t, router.StatusInternalServerError, *status)
		errBody, ok := (*body)["error"].(map[string]any)
		require.True(t, ok)
		assert.NotEqual(t, rbac.TextCodeInvalidCredentials, errBody["text_code"])
	})
}

func TestFormatValidationErrorToMap(t *testing.T) {
	t.Run("nil error yields an empty map", func(t *testing.T) {
		assert.Empty(t, rbac.FormatValidationErrorToMap(nil))
	})

	t.Run("flattens field errors", func(t *testing.T) {
		req := rbac.LoginRequest{Email: "not-an-email"}
		err := req.Validate()

		out := rbac.FormatValidationErrorToMap(err)
		assert.Contains(t, out, "email")
		assert.Contains(t, out, "password")
	})

	t.Run("non validation errors collapse to a payload entry", func(t *testing.T) {
		out := rbac.FormatValidationErrorToMap(assert.AnError)
		assert.Contains(t, out, "payload")
	})

	t.Run("typed validation errors keep their keys", func(t *testing.T) {
		verrs := validation.Errors{"field": assert.AnError}
		out := rbac.FormatValidationErrorToMap(verrs)
		assert.Equal(t, assert.AnError.Error(), out["field"])
	})
}
