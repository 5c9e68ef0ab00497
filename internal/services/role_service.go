package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BradenHooton/usergate/internal/models"
	pkglogger "github.com/BradenHooton/usergate/pkg/logger"
)

// AdminRole is the role RequireRole checks when RBAC enforcement is on
const AdminRole = "admin"

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Update(ctx context.Context, id int64, role *models.Role) (*models.Role, error)
	Delete(ctx context.Context, id int64) error
}

type UserRoleRepository interface {
	Create(ctx context.Context, ur *models.UserRole) (*models.UserRole, error)
	Exists(ctx context.Context, userID, roleID int64) (bool, error)
	UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error)
}

// RoleService manages roles and their assignment to users
type RoleService struct {
	roles       RoleRepository
	userRoles   UserRoleRepository
	users       UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewRoleService(
	roles RoleRepository,
	userRoles UserRoleRepository,
	users UserRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *RoleService {
	return &RoleService{
		roles:       roles,
		userRoles:   userRoles,
		users:       users,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

func validateRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewValidationError("Role name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxRoleNameLen {
		return "", models.NewValidationError(fmt.Sprintf("Role name must be at most %d characters", models.MaxRoleNameLen))
	}
	return name, nil
}

func (s *RoleService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.Create(ctx, models.NewRole(name, s.now()))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		case errors.Is(err, models.ErrBadRequest):
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to create role", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogRoleChange(ctx, "role_created", role.ID, 0)
	return role, nil
}

func (s *RoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		s.logger.Error("failed to list roles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return roles, nil
}

func (s *RoleService) GetRole(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get role", slog.Int64("role_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return role, nil
}

func (s *RoleService) RenameRole(ctx context.Context, id int64, name string) (*models.Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Name = name
	role.UpdatedDate = s.now()

	updated, err := s.roles.Update(ctx, id, role)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		case errors.Is(err, models.ErrBadRequest):
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to rename role", slog.Int64("role_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogRoleChange(ctx, "role_renamed", id, 0)
	return updated, nil
}

// DeleteRole removes the role together with every assignment of it.
func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete role", slog.Int64("role_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogRoleChange(ctx, "role_deleted", id, 0)
	return nil
}

// Assign links a user to a role. Either id missing yields models.ErrNotFound,
// an existing pair models.ErrConflict.
func (s *RoleService) Assign(ctx context.Context, userID, roleID int64) (*models.UserRole, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, s.assignLookupError(err, "user", userID)
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, s.assignLookupError(err, "role", roleID)
	}

	exists, err := s.userRoles.Exists(ctx, userID, roleID)
	if err != nil {
		s.logger.Error("failed to check assignment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		return nil, models.ErrConflict
	}

	ur, err := s.userRoles.Create(ctx, models.NewUserRole(userID, roleID, s.now()))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to assign role", slog.Int64("user_id", userID), slog.Int64("role_id", roleID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogRoleChange(ctx, "role_assigned", roleID, userID)
	return ur, nil
}

func (s *RoleService) assignLookupError(err error, kind string, id int64) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error("failed to load "+kind+" for assignment", slog.Int64("id", id), slog.Any("error", err))
	return models.ErrInternalServer
}

func (s *RoleService) ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error) {
	users, err := s.userRoles.ListUsersWithRoles(ctx)
	if err != nil {
		s.logger.Error("failed to list users with roles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

func (s *RoleService) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	return s.userRoles.UserHasRole(ctx, userID, roleName)
}

// EnsureAdmin creates the admin role and account if missing and makes sure
// the account holds the role. It is safe to run on every start.
func (s *RoleService) EnsureAdmin(ctx context.Context, signup *AuthService, email, password string) error {
	email = NormalizeEmail(email)

	role, err := s.roles.GetByName(ctx, AdminRole)
	if errors.Is(err, models.ErrNotFound) {
		role, err = s.roles.Create(ctx, models.NewRole(AdminRole, s.now()))
	}
	if err != nil {
		return fmt.Errorf("ensure admin role: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		user, err = signup.Signup(ctx, SignupInput{
			FirstName: "Admin",
			LastName:  "User",
			Email:     email,
			Password:  password,
		})
	}
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	exists, err := s.userRoles.Exists(ctx, user.ID, role.ID)
	if err != nil {
		return fmt.Errorf("check admin assignment: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := s.userRoles.Create(ctx, models.NewUserRole(user.ID, role.ID, s.now())); err != nil && !errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("assign admin role: %w", err)
	}

	s.logger.Info("admin account ready", slog.Int64("user_id", user.ID))
	return nil
}
