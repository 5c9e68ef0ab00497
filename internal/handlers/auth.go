package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/usergate/internal/models"
	"github.com/BradenHooton/usergate/internal/services"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

// AuthServiceInterface defines the interface for signup and login
type AuthServiceInterface interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// PasswordResetServiceInterface defines the forgot, verify and reset steps
type PasswordResetServiceInterface interface {
	IssueForPasswordReset(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	ConsumeAndReset(ctx context.Context, in services.ResetInput) error
}

// AuthHandler handles the public account endpoints
type AuthHandler struct {
	service AuthServiceInterface
	reset   PasswordResetServiceInterface
}

func NewAuthHandler(service AuthServiceInterface, reset PasswordResetServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
		reset:   reset,
	}
}

type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string  `json:"email" validate:"required,email"`
	OTP   otpCode `json:"otp" validate:"required"`
}

type ResetPasswordRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	OTP             otpCode `json:"otp"`
	NewPassword     string  `json:"newPassword"`
	ConfirmPassword string  `json:"confirmPassword"`
}

// Signup handles POST /users/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Signup(r.Context(), services.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "Email already in use")
			return
		}
		writeServiceError(w, err, "User not found")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "", userModelToResponse(user))
}

// Login handles POST /users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Please provide email and password")
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "Invalid email or password")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		Status: pkghttp.StatusSuccess,
		Token:  res.Token,
		Data: LoginUserResponse{
			ID:    res.User.ID,
			Name:  res.User.FirstName,
			Email: res.User.Email,
		},
	})
}

// ForgotPassword handles POST /users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Please provide a valid email address")
		return
	}

	if err := h.reset.IssueForPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, "There is no user with that email address")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "OTP sent to email!", nil)
}

// VerifyOTP handles POST /users/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.reset.Verify(r.Context(), req.Email, string(req.OTP)); err != nil {
		writeServiceError(w, err, "User not found")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "OTP verified successfully", nil)
}

// ResetPassword handles POST /users/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.reset.ConsumeAndReset(r.Context(), services.ResetInput{
		Email:           req.Email,
		Code:            string(req.OTP),
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, err, "User not found")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Password updated successfully", nil)
}
