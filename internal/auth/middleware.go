package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/usergate/internal/models"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

type contextKey string

// UserContextKey holds the authenticated *models.User
const UserContextKey contextKey = "user"

const (
	msgNotLoggedIn   = "You are not logged in. Please log in to get access."
	msgInvalidToken  = "Invalid token. Please log in again."
	msgExpiredToken  = "Your token has expired. Please log in again."
	msgUserGone      = "The user belonging to this token no longer exists."
	msgNoPermission  = "You do not have permission to perform this action"
	msgInternalError = "Something went wrong"
)

// Authenticator resolves a bearer token to a live user. It returns
// models.ErrTokenExpired, models.ErrTokenInvalid or models.ErrUnauthenticated
// for the rejected cases.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RoleChecker answers role membership for RequireRole
type RoleChecker interface {
	UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// Protect requires a valid "Bearer <token>" header naming a user that still
// exists. The user is attached to the request context.
func Protect(authenticator Authenticator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				pkghttp.WriteUnauthorized(w, msgNotLoggedIn)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), tokenString)
			switch {
			case err == nil:
			case errors.Is(err, models.ErrTokenExpired):
				pkghttp.WriteUnauthorized(w, msgExpiredToken)
				return
			case errors.Is(err, models.ErrTokenInvalid):
				pkghttp.WriteUnauthorized(w, msgInvalidToken)
				return
			case errors.Is(err, models.ErrUnauthenticated):
				pkghttp.WriteUnauthorized(w, msgUserGone)
				return
			default:
				logger.Error("failed to authenticate request", "error", err)
				pkghttp.WriteInternalError(w, msgInternalError)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits users holding any of roles. Must run after Protect.
func RequireRole(checker RoleChecker, logger *slog.Logger, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, msgNotLoggedIn)
				return
			}

			for _, role := range roles {
				has, err := checker.UserHasRole(r.Context(), user.ID, role)
				if err != nil {
					logger.Error("role check failed", "user_id", user.ID, "role", role, "error", err)
					pkghttp.WriteInternalError(w, msgInternalError)
					return
				}
				if has {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, msgNoPermission)
		})
	}
}

// GetUserFromContext returns the user attached by Protect, or nil
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
