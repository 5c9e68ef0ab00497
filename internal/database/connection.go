package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/usergate/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	pingTimeout     = 2 * time.Second
)

// DB owns the connection pool for the lifetime of the process.
// Open it once at startup and Close it on shutdown.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// poolConfig turns the database settings into a pgxpool configuration.
// MinConns is capped at MaxConns.
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database settings: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = min(cfg.MinConns, cfg.MaxConns)
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	return pc, nil
}

// Open builds the pool and waits for postgres to answer a ping, retrying
// with doubling backoff until ctx is done or the attempts run out.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool for %s/%s: %w", cfg.Host, cfg.Name, err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.waitReady(ctx, connectAttempts, connectBackoff); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
		slog.Int("max_conns", int(pc.MaxConns)),
		slog.Int("min_conns", int(pc.MinConns)),
	)
	return db, nil
}

func (db *DB) waitReady(ctx context.Context, attempts int, backoff time.Duration) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = db.HealthCheck(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("postgres unreachable after %d attempts: %w", attempts, err)
		}

		db.logger.Warn("postgres not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for postgres: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// NewFromPool wraps a pool the caller already opened, e.g. a test container's
func NewFromPool(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return &DB{Pool: pool, logger: logger}
}

func (db *DB) Close() {
	db.logger.Info("closing postgres pool")
	db.Pool.Close()
}

// HealthCheck pings one pooled connection. It backs GET /health.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
