package rbac_test

import (
	"context"

	rbac "github.com/goliatone/go-rbac"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIdentity implements rbac.Identity
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Token() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements rbac.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockIdentityProvider implements rbac.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (rbac.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(rbac.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (rbac.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(rbac.Identity)
	return identity, args.Error(1)
}

// MockSessionStore implements rbac.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) StoreToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockSessionStore) ClearToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockSessionResolver implements rbac.SessionResolver
type MockSessionResolver struct {
	mock.Mock
}

func (m *MockSessionResolver) GetByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*rbac.User, error) {
	args := m.Called(ctx, id, token)
	user, _ := args.Get(0).(*rbac.User)
	return user, args.Error(1)
}

// MockUserStore implements rbac.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*rbac.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*rbac.User)
	return user, args.Error(1)
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// MockConfig implements rbac.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	audience, _ := args.Get(0).([]string)
	return audience
}

func newMockConfig() *MockConfig {
	mockConfig := new(MockConfig)
	mockConfig.On("GetSigningKey").Return("test-signing-key")
	mockConfig.On("GetSigningMethod").Return("HS256")
	mockConfig.On("GetContextKey").Return("identity")
	mockConfig.On("GetTokenExpiration").Return(2)
	mockConfig.On("GetTokenLookup").Return("")
	mockConfig.On("GetAuthScheme").Return("Bearer")
	mockConfig.On("GetIssuer").Return("test-issuer")
	mockConfig.On("GetAudience").Return([]string{"test:audience"})
	return mockConfig
}
