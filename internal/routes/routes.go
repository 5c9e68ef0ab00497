package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/handlers"
	"github.com/BradenHooton/usergate/internal/middleware"
	"github.com/BradenHooton/usergate/internal/services"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

const APIPrefix = "/api/v1"

// Options controls the router-wide middleware
type Options struct {
	Env            string
	RBACEnforce    bool
	RateLimit      middleware.RateLimitConfig
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Roles  *handlers.RoleHandler
	Health http.HandlerFunc
}

// NewRouter builds the HTTP handler for the whole API
func NewRouter(
	opts Options,
	h Handlers,
	authenticator auth.Authenticator,
	roleChecker auth.RoleChecker,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecureLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: opts.Env}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins)))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, fmt.Sprintf("Can't find %s on this server", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.Health)

	r.Route(APIPrefix, func(r chi.Router) {
		RegisterRoutes(r, opts, h, authenticator, roleChecker, logger)
	})

	return r
}

// RegisterRoutes registers the /users and /roles routes on router
func RegisterRoutes(
	router chi.Router,
	opts Options,
	h Handlers,
	authenticator auth.Authenticator,
	roleChecker auth.RoleChecker,
	logger *slog.Logger,
) {
	// One limiter shared by every public endpoint
	limiter := middleware.RateLimitByIP(opts.RateLimit)
	protect := auth.Protect(authenticator, logger)

	router.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/signup", h.Auth.Signup)
			r.Post("/login", h.Auth.Login)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/verify-otp", h.Auth.VerifyOTP)
			r.Post("/reset-password", h.Auth.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Get("/", h.Users.ListUsers)
			r.Get("/{id}", h.Users.GetUser)
			r.Patch("/{id}", h.Users.UpdateUser)
			r.Delete("/{id}", h.Users.DeleteUser)
		})
	})

	router.Route("/roles", func(r chi.Router) {
		r.Use(protect)

		r.Get("/", h.Roles.ListRoles)
		r.Get("/getUsersWithRoles", h.Roles.UsersWithRoles)
		r.Get("/{id}", h.Roles.GetRole)

		// Mutations, admin only when RBAC is enforced
		r.Group(func(r chi.Router) {
			if opts.RBACEnforce {
				r.Use(auth.RequireRole(roleChecker, logger, services.AdminRole))
			}
			r.Post("/", h.Roles.CreateRole)
			r.Post("/assign", h.Roles.AssignRole)
			r.Patch("/{id}", h.Roles.UpdateRole)
			r.Delete("/{id}", h.Roles.DeleteRole)
		})
	})
}
