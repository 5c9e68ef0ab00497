package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/usergate/internal/handlers"
	"github.com/BradenHooton/usergate/internal/models"
)

var roleDate = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func sampleRole(id int64, name string) *models.Role {
	return &models.Role{ID: id, Name: name, CreatedDate: roleDate, UpdatedDate: roleDate}
}

type roleData struct {
	Role handlers.RoleResponse `json:"role"`
}

func TestCreateRole_Success(t *testing.T) {
	var gotName string
	mockService := &handlers.MockRoleService{
		CreateRoleFunc: func(ctx context.Context, name string) (*models.Role, error) {
			gotName = name
			return sampleRole(1, name), nil
		},
	}

	handler := handlers.NewRoleHandler(mockService)
	w := httptest.NewRecorder()
	handler.CreateRole(w, handlers.NewRawRequest("POST", "/roles/", `{"role_name":"editor"}`))

	var data roleData
	env := handlers.DecodeEnvelope(t, w, 201, &data)
	assert.Equal(t, "Role created successfully", env.Message)
	assert.Equal(t, int64(1), data.Role.ID)
	assert.Equal(t, "editor", data.Role.Name)
	assert.Equal(t, "2024-05-02", data.Role.CreatedDate)
	assert.Equal(t, "editor", gotName)
}

func TestCreateRole_Duplicate(t *testing.T) {
	handler := handlers.NewRoleHandler(&handlers.MockRoleService{})
	w := httptest.NewRecorder()
	handler.CreateRole(w, handlers.NewRawRequest("POST", "/roles/", `{"role_name":"editor"}`))

	handlers.AssertFailure(t, w, 409, "Role name already exists")
}

func TestCreateRole_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing name", `{}`, "role_name is required"},
		{"too long", `{"role_name":"` + strings.Repeat("r", 51) + `"}`, "role_name must have a maximum of 50 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewRoleHandler(&handlers.MockRoleService{})
			w := httptest.NewRecorder()
			handler.CreateRole(w, handlers.NewRawRequest("POST", "/roles/", tt.body))

			handlers.AssertFailure(t, w, 400, tt.message)
		})
	}
}

func TestListRoles(t *testing.T) {
	mockService := &handlers.MockRoleService{
		ListRolesFunc: func(ctx context.Context) ([]*models.Role, error) {
			return []*models.Role{sampleRole(1, "admin"), sampleRole(2, "editor")}, nil
		},
	}

	handler := handlers.NewRoleHandler(mockService)
	w := httptest.NewRecorder()
	handler.ListRoles(w, httptest.NewRequest("GET", "/roles/", nil))

	var data struct {
		Roles []handlers.RoleResponse `json:"roles"`
	}
	env := handlers.DecodeEnvelope(t, w, 200, &data)
	assert.Equal(t, "Roles retrieved successfully", env.Message)
	require.Len(t, data.Roles, 2)
	assert.Equal(t, "editor", data.Roles[1].Name)
}

func TestListRoles_Empty(t *testing.T) {
	handler := handlers.NewRoleHandler(&handlers.MockRoleService{})
	w := httptest.NewRecorder()
	handler.ListRoles(w, httptest.NewRequest("GET", "/roles/", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":[]`)
}

func TestGetRole(t *testing.T) {
	mockService := &handlers.MockRoleService{
		GetRoleFunc: func(ctx context.Context, id int64) (*models.Role, error) {
			if id == 3 {
				return sampleRole(3, "auditor"), nil
			}
			return nil, models.ErrNotFound
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	w := httptest.NewRecorder()
	handler.GetRole(w, handlers.WithURLParam(httptest.NewRequest("GET", "/roles/3", nil), "id", "3"))
	var data roleData
	env := handlers.DecodeEnvelope(t, w, 200, &data)
	assert.Equal(t, "Role retrieved successfully", env.Message)
	assert.Equal(t, "auditor", data.Role.Name)

	w = httptest.NewRecorder()
	handler.GetRole(w, handlers.WithURLParam(httptest.NewRequest("GET", "/roles/4", nil), "id", "4"))
	handlers.AssertFailure(t, w, 404, "Role not found")

	w = httptest.NewRecorder()
	handler.GetRole(w, handlers.WithURLParam(httptest.NewRequest("GET", "/roles/x", nil), "id", "x"))
	handlers.AssertFailure(t, w, 400, "Invalid role id")
}

func TestUpdateRole(t *testing.T) {
	mockService := &handlers.MockRoleService{
		RenameRoleFunc: func(ctx context.Context, id int64, name string) (*models.Role, error) {
			return sampleRole(id, name), nil
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	req := handlers.WithURLParam(handlers.NewRawRequest("PATCH", "/roles/2", `{"role_name":"publisher"}`), "id", "2")
	w := httptest.NewRecorder()
	handler.UpdateRole(w, req)

	var data roleData
	env := handlers.DecodeEnvelope(t, w, 200, &data)
	assert.Equal(t, "Role updated successfully", env.Message)
	assert.Equal(t, int64(2), data.Role.ID)
	assert.Equal(t, "publisher", data.Role.Name)
}

func TestUpdateRole_NameTaken(t *testing.T) {
	mockService := &handlers.MockRoleService{
		RenameRoleFunc: func(ctx context.Context, id int64, name string) (*models.Role, error) {
			return nil, models.ErrConflict
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	req := handlers.WithURLParam(handlers.NewRawRequest("PATCH", "/roles/2", `{"role_name":"admin"}`), "id", "2")
	w := httptest.NewRecorder()
	handler.UpdateRole(w, req)

	handlers.AssertFailure(t, w, 409, "Role name already exists")
}

func TestDeleteRole(t *testing.T) {
	mockService := &handlers.MockRoleService{
		DeleteRoleFunc: func(ctx context.Context, id int64) error {
			if id == 2 {
				return nil
			}
			return models.ErrNotFound
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	w := httptest.NewRecorder()
	handler.DeleteRole(w, handlers.WithURLParam(httptest.NewRequest("DELETE", "/roles/2", nil), "id", "2"))
	assert.Equal(t, 204, w.Code)
	assert.Empty(t, w.Body.String())

	w = httptest.NewRecorder()
	handler.DeleteRole(w, handlers.WithURLParam(httptest.NewRequest("DELETE", "/roles/9", nil), "id", "9"))
	handlers.AssertFailure(t, w, 404, "Role not found")
}

func TestAssignRole(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		serviceErr  error
		wantStatus  int
		wantMessage string
	}{
		{"assigned", `{"user_id":4,"role_id":2}`, nil, 200, "Role assigned to user successfully"},
		{"already assigned", `{"user_id":4,"role_id":2}`, models.ErrConflict, 400, "Role already assigned to this user"},
		{"missing user or role", `{"user_id":4,"role_id":99}`, models.ErrNotFound, 404, "User or Role not found"},
		{"missing role id", `{"user_id":4}`, nil, 400, "role_id is required"},
		{"non-positive user id", `{"user_id":-1,"role_id":2}`, nil, 400, "user_id must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &handlers.MockRoleService{
				AssignFunc: func(ctx context.Context, userID, roleID int64) (*models.UserRole, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &models.UserRole{ID: 10, UserID: userID, RoleID: roleID, CreatedDate: roleDate, UpdatedDate: roleDate}, nil
				},
			}
			handler := handlers.NewRoleHandler(mockService)

			w := httptest.NewRecorder()
			handler.AssignRole(w, handlers.NewRawRequest("POST", "/roles/assign", tt.body))

			env := handlers.DecodeEnvelope(t, w, tt.wantStatus, nil)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.wantStatus == 200 {
				assert.Contains(t, w.Body.String(), `"userRole":{"id":10,"user_id":4,"role_id":2`)
			}
		})
	}
}

func TestUsersWithRoles(t *testing.T) {
	mockService := &handlers.MockRoleService{
		ListUsersWithRolesFunc: func(ctx context.Context) ([]*models.UserWithRoles, error) {
			return []*models.UserWithRoles{
				{User: sampleUser(1), Roles: []models.RoleSummary{{ID: 1, Name: "admin"}, {ID: 2, Name: "editor"}}},
				{User: sampleUser(2), Roles: []models.RoleSummary{}},
			}, nil
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	w := httptest.NewRecorder()
	handler.UsersWithRoles(w, httptest.NewRequest("GET", "/roles/getUsersWithRoles", nil))

	var data struct {
		Users []struct {
			ID    int64                          `json:"user_id"`
			Email string                         `json:"email"`
			Roles []handlers.RoleSummaryResponse `json:"roles"`
		} `json:"users"`
	}
	env := handlers.DecodeEnvelope(t, w, 200, &data)
	assert.Equal(t, "Users with roles fetched successfully", env.Message)
	require.Len(t, data.Users, 2)
	assert.Equal(t, int64(1), data.Users[0].ID)
	require.Len(t, data.Users[0].Roles, 2)
	assert.Equal(t, "editor", data.Users[0].Roles[1].Name)
	assert.NotNil(t, data.Users[1].Roles)
	assert.Empty(t, data.Users[1].Roles)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestUsersWithRoles_Error(t *testing.T) {
	mockService := &handlers.MockRoleService{
		ListUsersWithRolesFunc: func(ctx context.Context) ([]*models.UserWithRoles, error) {
			return nil, assert.AnError
		},
	}
	handler := handlers.NewRoleHandler(mockService)

	w := httptest.NewRecorder()
	handler.UsersWithRoles(w, httptest.NewRequest("GET", "/roles/getUsersWithRoles", nil))

	handlers.AssertFailure(t, w, 500, "Something went wrong. Please try again later.")
}
