package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/background"
	"github.com/BradenHooton/usergate/internal/config"
	"github.com/BradenHooton/usergate/internal/database"
	"github.com/BradenHooton/usergate/internal/handlers"
	"github.com/BradenHooton/usergate/internal/middleware"
	"github.com/BradenHooton/usergate/internal/repositories"
	"github.com/BradenHooton/usergate/internal/routes"
	"github.com/BradenHooton/usergate/internal/services"
	pkglogger "github.com/BradenHooton/usergate/pkg/logger"
)

const (
	timeoutHeadroom = time.Second
	shutdownTimeout = 30 * time.Second
)

// handlerTimeout ends handlers before the server write deadline so the
// 504 envelope still reaches the client.
func handlerTimeout(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 2*timeoutHeadroom {
		return writeTimeout / 2
	}
	return writeTimeout - timeoutHeadroom
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(openCtx, &cfg.Database, logger)
	cancelOpen()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := db.Migrate(ctx, "up")
		cancel()
		if err != nil {
			return err
		}
	}

	mailer, err := services.NewMailer(context.Background(), &cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	userRoleRepo := repositories.NewUserRoleRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	authService := services.NewAuthService(userRepo, tokenManager, logger, auditLogger)
	resetService := services.NewPasswordResetService(userRepo, mailer, cfg.Auth.OTPTTL, cfg.Mail.SendTimeout, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)
	roleService := services.NewRoleService(roleRepo, userRoleRepo, userRepo, logger, auditLogger)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := roleService.EnsureAdmin(ctx, authService, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		}
		cancel()
	} else {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin bootstrap")
	}

	rateLimit := middleware.DefaultPublicRateLimit()
	if cfg.Auth.RateLimitPerHour > 0 {
		rateLimit.Requests = cfg.Auth.RateLimitPerHour
	}

	router := routes.NewRouter(routes.Options{
		Env:            cfg.Server.Env,
		RBACEnforce:    cfg.Server.RBACEnforce,
		RateLimit:      rateLimit,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: handlerTimeout(cfg.Server.WriteTimeout),
	}, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, resetService),
		Users:  handlers.NewUserHandler(userService),
		Roles:  handlers.NewRoleHandler(roleService),
		Health: handlers.Health(db),
	}, authService, roleService, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweeper := background.NewOTPSweeper(userRepo, logger, cfg.Auth.OTPSweepInterval, cfg.Auth.OTPSweepGrace)
	go sweeper.Start(sweepCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
