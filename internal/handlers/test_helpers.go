package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/usergate/internal/models"
	"github.com/BradenHooton/usergate/internal/services"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body), "failed to encode request body")
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRawRequest creates a request whose body is sent as-is
func NewRawRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// DecodeEnvelope checks the status code and decodes the response envelope.
// data, when non-nil, receives the envelope's data field.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, data any) pkghttp.Envelope {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var raw struct {
		pkghttp.Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), "Failed to decode response JSON")
	if data != nil {
		require.NotEmpty(t, raw.Data, "response has no data")
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Envelope
}

// AssertFailure checks a fail or error envelope with the given message
func AssertFailure(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()
	env := DecodeEnvelope(t, w, expectedStatus, nil)
	if expectedStatus >= http.StatusInternalServerError {
		assert.Equal(t, pkghttp.StatusError, env.Status)
	} else {
		assert.Equal(t, pkghttp.StatusFail, env.Status)
	}
	assert.Equal(t, expectedMessage, env.Message)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignupFunc func(ctx context.Context, in services.SignupInput) (*models.User, error)
	LoginFunc  func(ctx context.Context, email, password string) (*services.LoginResult, error)
}

func (m *MockAuthService) Signup(ctx context.Context, in services.SignupInput) (*models.User, error) {
	if m.SignupFunc == nil {
		return nil, models.ErrConflict
	}
	return m.SignupFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	IssueFunc  func(ctx context.Context, email string) error
	VerifyFunc func(ctx context.Context, email, code string) error
	ResetFunc  func(ctx context.Context, in services.ResetInput) error
}

func (m *MockPasswordResetService) IssueForPasswordReset(ctx context.Context, email string) error {
	if m.IssueFunc == nil {
		return nil
	}
	return m.IssueFunc(ctx, email)
}

func (m *MockPasswordResetService) Verify(ctx context.Context, email, code string) error {
	if m.VerifyFunc == nil {
		return nil
	}
	return m.VerifyFunc(ctx, email, code)
}

func (m *MockPasswordResetService) ConsumeAndReset(ctx context.Context, in services.ResetInput) error {
	if m.ResetFunc == nil {
		return nil
	}
	return m.ResetFunc(ctx, in)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserFunc    func(ctx context.Context, id int64) (*models.User, error)
	ListUsersFunc  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUserFunc func(ctx context.Context, id int64, upd services.UserUpdate) (*models.User, error)
	DeleteUserFunc func(ctx context.Context, id int64) error
}

func (m *MockUserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) UpdateUser(ctx context.Context, id int64, upd services.UserUpdate) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, id, upd)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id int64) error {
	if m.DeleteUserFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteUserFunc(ctx, id)
}

// MockRoleService implements RoleService for testing
type MockRoleService struct {
	CreateRoleFunc         func(ctx context.Context, name string) (*models.Role, error)
	ListRolesFunc          func(ctx context.Context) ([]*models.Role, error)
	GetRoleFunc            func(ctx context.Context, id int64) (*models.Role, error)
	RenameRoleFunc         func(ctx context.Context, id int64, name string) (*models.Role, error)
	DeleteRoleFunc         func(ctx context.Context, id int64) error
	AssignFunc             func(ctx context.Context, userID, roleID int64) (*models.UserRole, error)
	ListUsersWithRolesFunc func(ctx context.Context) ([]*models.UserWithRoles, error)
}

func (m *MockRoleService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	if m.CreateRoleFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateRoleFunc(ctx, name)
}

func (m *MockRoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	if m.ListRolesFunc == nil {
		return []*models.Role{}, nil
	}
	return m.ListRolesFunc(ctx)
}

func (m *MockRoleService) GetRole(ctx context.Context, id int64) (*models.Role, error) {
	if m.GetRoleFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetRoleFunc(ctx, id)
}

func (m *MockRoleService) RenameRole(ctx context.Context, id int64, name string) (*models.Role, error) {
	if m.RenameRoleFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RenameRoleFunc(ctx, id, name)
}

func (m *MockRoleService) DeleteRole(ctx context.Context, id int64) error {
	if m.DeleteRoleFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteRoleFunc(ctx, id)
}

func (m *MockRoleService) Assign(ctx context.Context, userID, roleID int64) (*models.UserRole, error) {
	if m.AssignFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.AssignFunc(ctx, userID, roleID)
}

func (m *MockRoleService) ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error) {
	if m.ListUsersWithRolesFunc == nil {
		return []*models.UserWithRoles{}, nil
	}
	return m.ListUsersWithRolesFunc(ctx)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(context.Context) error {
	return m.Err
}
