package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/usergate/internal/models"
	"github.com/BradenHooton/usergate/internal/services"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// UserService defines the interface for user business logic
type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, upd services.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserHandler handles the protected /users endpoints
type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// UpdateUserRequest is a partial update; omitted fields are left unchanged
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
}

// ListUsers handles GET /users/?limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if !ok {
		pkghttp.WriteBadRequest(w, "limit must be between 1 and 500")
		return
	}
	offset, ok := queryInt(r, "offset", 0, 0, int(^uint32(0)>>1))
	if !ok {
		pkghttp.WriteBadRequest(w, "offset must be a non-negative integer")
		return
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "", usersToResponse(users))
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "User not found for "+strconv.FormatInt(id, 10))
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "", userModelToResponse(user))
}

// UpdateUser handles PATCH /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return
	}

	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, services.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "Email already in use")
			return
		}
		writeServiceError(w, err, "User not found for "+strconv.FormatInt(id, 10))
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "success updated", userModelToResponse(user))
}

// DeleteUser handles DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err, "User not found for "+strconv.FormatInt(id, 10))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an optional integer query parameter within [min, max]
func queryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}
