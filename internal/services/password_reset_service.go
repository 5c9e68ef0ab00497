package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/models"
	pkgauth "github.com/BradenHooton/usergate/pkg/auth"
	pkglogger "github.com/BradenHooton/usergate/pkg/logger"
)

const msgPasswordRules = "Passwords must match and be at least 8 characters long"

// PasswordResetService runs the forgot, verify and reset sequence.
//
// A user moves from no request to an issued code on IssueForPasswordReset.
// Verify is read-only. ConsumeAndReset re-checks the code under a row lock,
// stores the new hash and clears the code so it can never validate again.
// An expired code needs a fresh IssueForPasswordReset.
type PasswordResetService struct {
	repo        UserRepository
	mailer      Mailer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	otpTTL      time.Duration
	sendTimeout time.Duration
	now         func() time.Time
	generateOTP func() (int, error)
}

func NewPasswordResetService(
	repo UserRepository,
	mailer Mailer,
	otpTTL, sendTimeout time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		repo:        repo,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
		otpTTL:      otpTTL,
		sendTimeout: sendTimeout,
		now:         time.Now,
		generateOTP: auth.GenerateOTP,
	}
}

type ResetInput struct {
	Email           string
	Code            string // optional; when set it must match the issued code
	NewPassword     string
	ConfirmPassword string
}

// IssueForPasswordReset stores a fresh code for the account and mails it.
// A mail failure returns models.ErrDelivery; the stored code stays valid.
func (s *PasswordResetService) IssueForPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return models.NewValidationError("Please provide a valid email address")
	}

	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.generateOTP()
	if err != nil {
		s.logger.Error("failed to generate reset code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expires := s.now().Add(s.otpTTL)
	if err := s.repo.SetPasswordResetOTP(ctx, user.ID, code, expires); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to store reset code", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.mailer.SendPasswordResetOTP(sendCtx, user.Email, auth.FormatOTP(code), s.otpTTL); err != nil {
		s.logger.Error("failed to send reset code",
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		s.auditLogger.LogPasswordReset(ctx, pkglogger.AuditEvent{
			EventType:     "reset_code_issued",
			UserID:        user.ID,
			FailureReason: "delivery_failed",
		})
		return models.ErrDelivery
	}

	s.auditLogger.LogPasswordReset(ctx, pkglogger.AuditEvent{
		EventType: "reset_code_issued",
		UserID:    user.ID,
		Success:   true,
	})
	return nil
}

// Verify reports whether code is the outstanding, unexpired code for email.
func (s *PasswordResetService) Verify(ctx context.Context, email, code string) error {
	user, err := s.lookup(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}

	if err := checkResetCode(user, code, s.now()); err != nil {
		s.auditLogger.LogPasswordReset(ctx, pkglogger.AuditEvent{
			EventType:     "reset_code_verified",
			UserID:        user.ID,
			FailureReason: err.Error(),
		})
		return err
	}

	return nil
}

// ConsumeAndReset replaces the password if a reset code is still outstanding
// and unexpired at commit time.
func (s *PasswordResetService) ConsumeAndReset(ctx context.Context, in ResetInput) error {
	email := NormalizeEmail(in.Email)

	if _, err := s.lookup(ctx, email); err != nil {
		return err
	}

	if err := pkgauth.ValidatePasswordPair(in.NewPassword, in.ConfirmPassword); err != nil {
		if errors.Is(err, pkgauth.ErrPasswordTooLong) {
			return models.NewValidationError(capitalize(err.Error()))
		}
		return models.NewValidationError(msgPasswordRules)
	}

	hash, err := pkgauth.HashPassword(in.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	check := func(u *models.User) error {
		if in.Code == "" {
			return checkPendingReset(u, s.now())
		}
		return checkResetCode(u, in.Code, s.now())
	}

	user, err := s.repo.ConsumePasswordReset(ctx, email, check, hash, s.now())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound),
			errors.Is(err, models.ErrInvalidOTP),
			errors.Is(err, models.ErrOTPExpired):
			s.auditLogger.LogPasswordReset(ctx, pkglogger.AuditEvent{
				EventType:     "password_reset",
				FailureReason: err.Error(),
			})
			return err
		}
		s.logger.Error("failed to reset password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if in.Code == "" {
		s.logger.Warn("password reset without a reset code",
			slog.Int64("user_id", user.ID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	} else {
		s.logger.Info("password reset", slog.Int64("user_id", user.ID))
	}
	s.auditLogger.LogPasswordReset(ctx, pkglogger.AuditEvent{
		EventType: "password_reset",
		UserID:    user.ID,
		Success:   true,
		Metadata:  map[string]string{"code_supplied": strconv.FormatBool(in.Code != "")},
	})

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.mailer.SendPasswordResetConfirmation(sendCtx, user.Email); err != nil {
		s.logger.Warn("failed to send reset confirmation",
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
	}

	return nil
}

func (s *PasswordResetService) lookup(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// checkResetCode matches code against the stored one, then checks expiry.
func checkResetCode(u *models.User, code string, now time.Time) error {
	if u.PasswordResetOTP == nil {
		return models.ErrInvalidOTP
	}
	if _, ok := auth.ParseOTP(code); !ok {
		return models.ErrInvalidOTP
	}

	stored := auth.FormatOTP(*u.PasswordResetOTP)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return models.ErrInvalidOTP
	}

	return checkPendingReset(u, now)
}

// checkPendingReset requires an issued code that has not yet expired.
func checkPendingReset(u *models.User, now time.Time) error {
	if !u.HasPendingPasswordReset() {
		return models.ErrInvalidOTP
	}
	if now.After(*u.PasswordResetOTPExpires) {
		return models.ErrOTPExpired
	}
	return nil
}
