package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/usergate/internal/models"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

// RoleService defines role management and assignment
type RoleService interface {
	CreateRole(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)
	GetRole(ctx context.Context, id int64) (*models.Role, error)
	RenameRole(ctx context.Context, id int64, name string) (*models.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	Assign(ctx context.Context, userID, roleID int64) (*models.UserRole, error)
	ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error)
}

// RoleHandler handles the /roles endpoints
type RoleHandler struct {
	service RoleService
}

func NewRoleHandler(service RoleService) *RoleHandler {
	return &RoleHandler{
		service: service,
	}
}

type RoleRequest struct {
	Name string `json:"role_name" validate:"required,max=50"`
}

type AssignRoleRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

// CreateRole handles POST /roles/
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, err := h.service.CreateRole(r.Context(), req.Name)
	if err != nil {
		h.writeRoleError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Role created successfully",
		map[string]any{"role": roleModelToResponse(role)})
}

// ListRoles handles GET /roles/
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.writeRoleError(w, err)
		return
	}

	out := make([]*RoleResponse, len(roles))
	for i, role := range roles {
		out[i] = roleModelToResponse(role)
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Roles retrieved successfully", map[string]any{"roles": out})
}

// GetRole handles GET /roles/{id}
func (h *RoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid role id")
		return
	}

	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.writeRoleError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Role retrieved successfully",
		map[string]any{"role": roleModelToResponse(role)})
}

// UpdateRole handles PATCH /roles/{id}
func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid role id")
		return
	}

	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, err := h.service.RenameRole(r.Context(), id, req.Name)
	if err != nil {
		h.writeRoleError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Role updated successfully",
		map[string]any{"role": roleModelToResponse(role)})
}

// DeleteRole handles DELETE /roles/{id}
func (h *RoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid role id")
		return
	}

	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.writeRoleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignRole handles POST /roles/assign
func (h *RoleHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ur, err := h.service.Assign(r.Context(), req.UserID, req.RoleID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User or Role not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, "Role already assigned to this user")
		default:
			writeServiceError(w, err, "")
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Role assigned to user successfully", map[string]any{
		"userRole": UserRoleResponse{
			ID:          ur.ID,
			UserID:      ur.UserID,
			RoleID:      ur.RoleID,
			CreatedDate: formatDate(ur.CreatedDate),
			UpdatedDate: formatDate(ur.UpdatedDate),
		},
	})
}

// UsersWithRoles handles GET /roles/getUsersWithRoles
func (h *RoleHandler) UsersWithRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsersWithRoles(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Users with roles fetched successfully",
		map[string]any{"users": usersWithRolesToResponse(list)})
}

func (h *RoleHandler) writeRoleError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrConflict) {
		pkghttp.WriteConflict(w, "Role name already exists")
		return
	}
	writeServiceError(w, err, "Role not found")
}
