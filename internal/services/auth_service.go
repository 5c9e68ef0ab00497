package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/models"
	pkgauth "github.com/BradenHooton/usergate/pkg/auth"
	pkglogger "github.com/BradenHooton/usergate/pkg/logger"
)

// dummyHash is compared against when the email is unknown so that a missing
// account costs the same bcrypt work as a wrong password.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService handles signup, login and token authentication
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewAuthService(repo UserRepository, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginResult is a signed token plus the user it was issued for
type LoginResult struct {
	Token string
	User  *models.User
}

// NormalizeEmail trims and lowercases an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup hashes the password and stores a new account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if firstName == "" || lastName == "" || email == "" {
		return nil, models.NewValidationError("Please provide first name, last name and email")
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(capitalize(err.Error()))
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Legacy per-account code, kept for schema compatibility
	legacy, err := auth.GenerateOTP()
	if err != nil {
		s.logger.Error("failed to generate signup code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := models.NewUser(firstName, lastName, email, hash, s.now())
	user.OTP = &legacy

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("signup rejected: email in use", slog.String("email", pkglogger.SanitizedEmail(email)))
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     "signup_failed",
				FailureReason: "email_in_use",
			})
			return nil, models.ErrConflict
		}
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user signed up", slog.Int64("user_id", created.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "signup_success",
		UserID:    created.ID,
		Success:   true,
	})

	return created, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password both return models.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Please provide email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to get user by email", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		_ = pkgauth.ComparePassword(dummyHash, password)
		s.loginFailed(ctx, 0)
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.loginFailed(ctx, user.ID)
		return nil, models.ErrUnauthorized
	}

	token, err := s.tm.GenerateToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID int64) {
	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        userID,
		FailureReason: "invalid_credentials",
	})
}

// Authenticate resolves a token to a live user. A deleted account yields
// models.ErrUnauthenticated even while its token is still unexpired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tm.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		s.logger.Error("failed to load token user", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
