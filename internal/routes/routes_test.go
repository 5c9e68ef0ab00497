package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/handlers"
	"github.com/BradenHooton/usergate/internal/middleware"
	"github.com/BradenHooton/usergate/internal/routes"
	"github.com/BradenHooton/usergate/internal/services"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

type healthStub struct{ err error }

func (h healthStub) HealthCheck(context.Context) error { return h.err }

// mailbox records the last code mailed to each address
type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
	sent  []string
}

func (m *mailbox) mailer() *services.MockMailer {
	return &services.MockMailer{
		SendPasswordResetOTPFunc: func(ctx context.Context, to, code string, ttl time.Duration) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.codes[to] = code
			return nil
		},
		SendPasswordResetConfirmationFunc: func(ctx context.Context, to string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.sent = append(m.sent, to)
			return nil
		},
	}
}

func (m *mailbox) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type app struct {
	router  http.Handler
	store   *memStore
	authSvc *services.AuthService
	roleSvc *services.RoleService
	mail    *mailbox
}

func newApp(opts routes.Options, health error) *app {
	logger := services.NewTestLogger()
	audit := services.NewTestAuditLogger()

	store := newMemStore()
	users := memUsers{store}
	mail := &mailbox{codes: map[string]string{}}

	tm := auth.NewTokenManager("routes-suite-secret-32-characters", time.Hour)
	authSvc := services.NewAuthService(users, tm, logger, audit)
	resetSvc := services.NewPasswordResetService(users, mail.mailer(), 10*time.Minute, time.Second, logger, audit)
	userSvc := services.NewUserService(users, logger)
	roleSvc := services.NewRoleService(memRoles{store}, memUserRoles{store}, users, logger, audit)

	if opts.RateLimit.Requests == 0 {
		opts.RateLimit = middleware.RateLimitConfig{Requests: 1000, Window: time.Hour}
	}

	router := routes.NewRouter(opts, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authSvc, resetSvc),
		Users:  handlers.NewUserHandler(userSvc),
		Roles:  handlers.NewRoleHandler(roleSvc),
		Health: handlers.Health(healthStub{err: health}),
	}, authSvc, roleSvc, logger)

	return &app{router: router, store: store, authSvc: authSvc, roleSvc: roleSvc, mail: mail}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (a *app) do(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		Expect(json.Unmarshal(w.Body.Bytes(), &env)).To(Succeed())
	}
	return w, env
}

func (a *app) signup(first, email, password string) int64 {
	w, env := a.do("POST", "/api/v1/users/signup", map[string]string{
		"firstName": first,
		"lastName":  "Tester",
		"email":     email,
		"password":  password,
	}, "")
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	var user handlers.UserResponse
	Expect(json.Unmarshal(env.Data, &user)).To(Succeed())
	return user.ID
}

func (a *app) login(email, password string) string {
	w, env := a.do("POST", "/api/v1/users/login", map[string]string{"email": email, "password": password}, "")
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
	Expect(env.Token).NotTo(BeEmpty())
	return env.Token
}

var _ = Describe("Router", func() {
	var a *app

	BeforeEach(func() {
		a = newApp(routes.Options{Env: "test"}, nil)
	})

	Describe("infrastructure", func() {
		It("reports health", func() {
			w, env := a.do("GET", "/health", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Status).To(Equal(pkghttp.StatusSuccess))
		})

		It("reports an unreachable database as 503", func() {
			a = newApp(routes.Options{}, errors.New("connection refused"))
			w, env := a.do("GET", "/health", nil, "")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(env.Status).To(Equal(pkghttp.StatusError))
		})

		It("answers unknown paths with a fail envelope", func() {
			w, env := a.do("GET", "/api/v1/blogs", nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(env.Status).To(Equal(pkghttp.StatusFail))
			Expect(env.Message).To(ContainSubstring("/api/v1/blogs"))
		})

		It("sets security headers", func() {
			w, _ := a.do("GET", "/health", nil, "")
			Expect(w.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
			Expect(w.Header().Get("X-Frame-Options")).To(Equal("DENY"))
		})
	})

	Describe("account flow", func() {
		It("signs up, logs in and reaches protected routes", func() {
			id := a.signup("ada", "Ada@Example.com", "password123")
			token := a.login("ada@example.com", "password123")

			w, env := a.do("GET", "/api/v1/users/", nil, token)
			Expect(w.Code).To(Equal(http.StatusOK))
			var list []handlers.UserResponse
			Expect(json.Unmarshal(env.Data, &list)).To(Succeed())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(id))
			Expect(list[0].Email).To(Equal("ada@example.com"))
			Expect(w.Body.String()).NotTo(ContainSubstring("$2a$"))
		})

		It("rejects a second signup with the same email", func() {
			a.signup("ada", "ada@example.com", "password123")
			w, env := a.do("POST", "/api/v1/users/signup", map[string]string{
				"firstName": "other", "lastName": "person", "email": "ADA@example.com", "password": "password123",
			}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(env.Message).To(Equal("Email already in use"))
		})

		It("rejects wrong passwords and unknown emails the same way", func() {
			a.signup("ada", "ada@example.com", "password123")

			w1, env1 := a.do("POST", "/api/v1/users/login", map[string]string{"email": "ada@example.com", "password": "wrong-password"}, "")
			w2, env2 := a.do("POST", "/api/v1/users/login", map[string]string{"email": "nobody@example.com", "password": "wrong-password"}, "")

			Expect(w1.Code).To(Equal(http.StatusUnauthorized))
			Expect(w2.Code).To(Equal(http.StatusUnauthorized))
			Expect(env1.Message).To(Equal(env2.Message))
		})

		It("updates and deletes a user", func() {
			id := a.signup("ada", "ada@example.com", "password123")
			other := a.signup("grace", "grace@example.com", "password123")
			token := a.login("ada@example.com", "password123")

			w, env := a.do("PATCH", "/api/v1/users/"+itoa(other), map[string]string{"lastName": "Hopper"}, token)
			Expect(w.Code).To(Equal(http.StatusOK))
			var updated handlers.UserResponse
			Expect(json.Unmarshal(env.Data, &updated)).To(Succeed())
			Expect(updated.LastName).To(Equal("Hopper"))
			Expect(updated.FirstName).To(Equal("grace"))

			w, _ = a.do("DELETE", "/api/v1/users/"+itoa(other), nil, token)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			w, env = a.do("GET", "/api/v1/users/"+itoa(other), nil, token)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(env.Message).To(Equal("User not found for " + itoa(other)))

			w, _ = a.do("GET", "/api/v1/users/"+itoa(id), nil, token)
			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Protect", func() {
		It("requires a bearer token", func() {
			w, env := a.do("GET", "/api/v1/users/", nil, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(env.Message).To(Equal("You are not logged in. Please log in to get access."))
		})

		It("rejects a malformed token", func() {
			w, env := a.do("GET", "/api/v1/roles/", nil, "not.a.jwt")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(env.Message).To(Equal("Invalid token. Please log in again."))
		})

		It("rejects the token of a deleted user", func() {
			id := a.signup("ada", "ada@example.com", "password123")
			token := a.login("ada@example.com", "password123")
			Expect(memUsers{a.store}.Delete(context.Background(), id)).To(Succeed())

			w, env := a.do("GET", "/api/v1/users/", nil, token)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(env.Message).To(Equal("The user belonging to this token no longer exists."))
		})
	})

	Describe("password reset", func() {
		BeforeEach(func() {
			a.signup("ada", "ada@example.com", "password123")
		})

		It("resets the password with the mailed code exactly once", func() {
			w, env := a.do("POST", "/api/v1/users/forgot-password", map[string]string{"email": "ada@example.com"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Message).To(Equal("OTP sent to email!"))

			code := a.mail.code("ada@example.com")
			Expect(code).To(MatchRegexp(`^\d{6}$`))

			w, env = a.do("POST", "/api/v1/users/verify-otp", map[string]string{"email": "ada@example.com", "otp": code}, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Message).To(Equal("OTP verified successfully"))

			reset := map[string]string{
				"email":           "ada@example.com",
				"otp":             code,
				"newPassword":     "brand-new-pass",
				"confirmPassword": "brand-new-pass",
			}
			w, env = a.do("POST", "/api/v1/users/reset-password", reset, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Message).To(Equal("Password updated successfully"))

			w, _ = a.do("POST", "/api/v1/users/reset-password", reset, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			a.login("ada@example.com", "brand-new-pass")
			w, _ = a.do("POST", "/api/v1/users/login", map[string]string{"email": "ada@example.com", "password": "password123"}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Eventually(func() []string {
				a.mail.mu.Lock()
				defer a.mail.mu.Unlock()
				return append([]string(nil), a.mail.sent...)
			}).Should(ContainElement("ada@example.com"))
		})

		It("rejects a wrong code", func() {
			a.do("POST", "/api/v1/users/forgot-password", map[string]string{"email": "ada@example.com"}, "")
			wrong := "000000"
			if a.mail.code("ada@example.com") == wrong {
				wrong = "000001"
			}

			w, env := a.do("POST", "/api/v1/users/verify-otp", map[string]string{"email": "ada@example.com", "otp": wrong}, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Message).To(Equal("Invalid OTP"))
		})

		It("reports unknown emails", func() {
			w, env := a.do("POST", "/api/v1/users/forgot-password", map[string]string{"email": "nobody@example.com"}, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(env.Message).To(Equal("There is no user with that email address"))
		})
	})

	Describe("roles", func() {
		var token string
		var userID int64

		BeforeEach(func() {
			userID = a.signup("ada", "ada@example.com", "password123")
			token = a.login("ada@example.com", "password123")
		})

		It("creates, assigns and lists roles", func() {
			w, env := a.do("POST", "/api/v1/roles/", map[string]string{"role_name": "editor"}, token)
			Expect(w.Code).To(Equal(http.StatusCreated))
			var created struct {
				Role handlers.RoleResponse `json:"role"`
			}
			Expect(json.Unmarshal(env.Data, &created)).To(Succeed())
			Expect(created.Role.Name).To(Equal("editor"))

			assign := map[string]int64{"user_id": userID, "role_id": created.Role.ID}
			w, env = a.do("POST", "/api/v1/roles/assign", assign, token)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Message).To(Equal("Role assigned to user successfully"))

			w, env = a.do("POST", "/api/v1/roles/assign", assign, token)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Message).To(Equal("Role already assigned to this user"))

			w, env = a.do("POST", "/api/v1/roles/assign", map[string]int64{"user_id": userID, "role_id": 999}, token)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(env.Message).To(Equal("User or Role not found"))

			w, env = a.do("GET", "/api/v1/roles/getUsersWithRoles", nil, token)
			Expect(w.Code).To(Equal(http.StatusOK))
			var listed struct {
				Users []handlers.UserWithRolesResponse `json:"users"`
			}
			Expect(json.Unmarshal(env.Data, &listed)).To(Succeed())
			Expect(listed.Users).To(HaveLen(1))
			Expect(listed.Users[0].Roles).To(ConsistOf(handlers.RoleSummaryResponse{ID: created.Role.ID, Name: "editor"}))
		})

		It("renames and deletes a role", func() {
			_, env := a.do("POST", "/api/v1/roles/", map[string]string{"role_name": "editor"}, token)
			var created struct {
				Role handlers.RoleResponse `json:"role"`
			}
			Expect(json.Unmarshal(env.Data, &created)).To(Succeed())
			path := "/api/v1/roles/" + itoa(created.Role.ID)

			w, env := a.do("PATCH", path, map[string]string{"role_name": "publisher"}, token)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(env.Message).To(Equal("Role updated successfully"))

			w, _ = a.do("DELETE", path, nil, token)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			w, env = a.do("GET", path, nil, token)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(env.Message).To(Equal("Role not found"))
		})
	})

	Describe("RBAC enforcement", func() {
		BeforeEach(func() {
			a = newApp(routes.Options{Env: "test", RBACEnforce: true}, nil)
			Expect(a.roleSvc.EnsureAdmin(context.Background(), a.authSvc, "root@example.com", "admin-password")).To(Succeed())
		})

		It("forbids role mutations for users without the admin role", func() {
			a.signup("ada", "ada@example.com", "password123")
			token := a.login("ada@example.com", "password123")

			w, env := a.do("POST", "/api/v1/roles/", map[string]string{"role_name": "editor"}, token)
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(env.Status).To(Equal(pkghttp.StatusFail))

			w, _ = a.do("GET", "/api/v1/roles/", nil, token)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("lets the bootstrapped admin mutate roles", func() {
			token := a.login("root@example.com", "admin-password")

			w, _ := a.do("POST", "/api/v1/roles/", map[string]string{"role_name": "editor"}, token)
			Expect(w.Code).To(Equal(http.StatusCreated))
		})

		It("is idempotent on restart", func() {
			Expect(a.roleSvc.EnsureAdmin(context.Background(), a.authSvc, "root@example.com", "admin-password")).To(Succeed())
			admin, err := memUsers{a.store}.GetByEmail(context.Background(), "root@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(a.store.userRoles).To(HaveLen(1))

			ok, err := a.roleSvc.UserHasRole(context.Background(), admin.ID, services.AdminRole)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("rate limiting", func() {
		It("limits the public routes per client IP", func() {
			a = newApp(routes.Options{RateLimit: middleware.RateLimitConfig{Requests: 2, Window: time.Hour}}, nil)
			body := map[string]string{"email": "nobody@example.com", "password": "password123"}

			w, _ := a.do("POST", "/api/v1/users/login", body, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			w, _ = a.do("POST", "/api/v1/users/forgot-password", map[string]string{"email": "nobody@example.com"}, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))

			w, env := a.do("POST", "/api/v1/users/login", body, "")
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
			Expect(env.Status).To(Equal(pkghttp.StatusFail))

			w, _ = a.do("GET", "/health", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})
})
