package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/usergate/internal/models"
	pkglogger "github.com/BradenHooton/usergate/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc              func(ctx context.Context, id int64) (*models.User, error)
	GetByEmailFunc           func(ctx context.Context, email string) (*models.User, error)
	ListFunc                 func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc               func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc               func(ctx context.Context, id int64, user *models.User) (*models.User, error)
	DeleteFunc               func(ctx context.Context, id int64) error
	SetPasswordResetOTPFunc  func(ctx context.Context, id int64, code int, expires time.Time) error
	ConsumePasswordResetFunc func(ctx context.Context, email string, check func(*models.User) error, passwordHash string, now time.Time) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id int64, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetPasswordResetOTP(ctx context.Context, id int64, code int, expires time.Time) error {
	if m.SetPasswordResetOTPFunc != nil {
		return m.SetPasswordResetOTPFunc(ctx, id, code, expires)
	}
	return nil
}

func (m *MockUserRepository) ConsumePasswordReset(ctx context.Context, email string, check func(*models.User) error, passwordHash string, now time.Time) (*models.User, error) {
	if m.ConsumePasswordResetFunc != nil {
		return m.ConsumePasswordResetFunc(ctx, email, check, passwordHash, now)
	}
	return nil, models.ErrInternalServer
}

// MockRoleRepository implements RoleRepository for testing
type MockRoleRepository struct {
	CreateFunc    func(ctx context.Context, role *models.Role) (*models.Role, error)
	GetByIDFunc   func(ctx context.Context, id int64) (*models.Role, error)
	GetByNameFunc func(ctx context.Context, name string) (*models.Role, error)
	ListFunc      func(ctx context.Context) ([]*models.Role, error)
	UpdateFunc    func(ctx context.Context, id int64, role *models.Role) (*models.Role, error)
	DeleteFunc    func(ctx context.Context, id int64) error
}

func (m *MockRoleRepository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, role)
	}
	return nil, models.ErrInternalServer
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Role{}, nil
}

func (m *MockRoleRepository) Update(ctx context.Context, id int64, role *models.Role) (*models.Role, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, role)
	}
	return nil, models.ErrInternalServer
}

func (m *MockRoleRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockUserRoleRepository implements UserRoleRepository for testing
type MockUserRoleRepository struct {
	CreateFunc             func(ctx context.Context, ur *models.UserRole) (*models.UserRole, error)
	ExistsFunc             func(ctx context.Context, userID, roleID int64) (bool, error)
	UserHasRoleFunc        func(ctx context.Context, userID int64, roleName string) (bool, error)
	ListUsersWithRolesFunc func(ctx context.Context) ([]*models.UserWithRoles, error)
}

func (m *MockUserRoleRepository) Create(ctx context.Context, ur *models.UserRole) (*models.UserRole, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ur)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRoleRepository) Exists(ctx context.Context, userID, roleID int64) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, userID, roleID)
	}
	return false, nil
}

func (m *MockUserRoleRepository) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	if m.UserHasRoleFunc != nil {
		return m.UserHasRoleFunc(ctx, userID, roleName)
	}
	return false, nil
}

func (m *MockUserRoleRepository) ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error) {
	if m.ListUsersWithRolesFunc != nil {
		return m.ListUsersWithRolesFunc(ctx)
	}
	return []*models.UserWithRoles{}, nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendPasswordResetOTPFunc          func(ctx context.Context, to, code string, ttl time.Duration) error
	SendPasswordResetConfirmationFunc func(ctx context.Context, to string) error
}

func (m *MockMailer) SendPasswordResetOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if m.SendPasswordResetOTPFunc != nil {
		return m.SendPasswordResetOTPFunc(ctx, to, code, ttl)
	}
	return nil
}

func (m *MockMailer) SendPasswordResetConfirmation(ctx context.Context, to string) error {
	if m.SendPasswordResetConfirmationFunc != nil {
		return m.SendPasswordResetConfirmationFunc(ctx, to)
	}
	return nil
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func NewTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}
