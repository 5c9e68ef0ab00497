package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/usergate/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id int64, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	SetPasswordResetOTP(ctx context.Context, id int64, code int, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, email string, check func(*models.User) error, passwordHash string, now time.Time) (*models.User, error)
}

// UserUpdate carries the profile fields a PATCH may change; nil means unchanged
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UserService handles profile reads and edits
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// UpdateUser applies the non-nil fields of upd. Passwords are never changed here.
func (s *UserService) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		if user.FirstName = strings.TrimSpace(*upd.FirstName); user.FirstName == "" {
			return nil, models.NewValidationError("First name cannot be empty")
		}
	}
	if upd.LastName != nil {
		if user.LastName = strings.TrimSpace(*upd.LastName); user.LastName == "" {
			return nil, models.NewValidationError("Last name cannot be empty")
		}
	}
	if upd.Email != nil {
		if user.Email = NormalizeEmail(*upd.Email); user.Email == "" {
			return nil, models.NewValidationError("Email cannot be empty")
		}
	}
	user.Touch(s.now())

	updated, err := s.repo.Update(ctx, id, user)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		case errors.Is(err, models.ErrBadRequest):
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to update user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.Int64("user_id", id))
	return updated, nil
}

// DeleteUser hard-deletes the account; role assignments cascade.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}
