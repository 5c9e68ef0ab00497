package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Mail     MailConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RBACEnforce  bool // gate role mutations behind the admin role
	CORSOrigins  []string
}

type AuthConfig struct {
	JWTSecret        string
	TokenExpiry      time.Duration
	OTPTTL           time.Duration
	OTPSweepInterval time.Duration
	OTPSweepGrace    time.Duration
	RateLimitPerHour int
}

type MailConfig struct {
	Provider     string // "ses" or "smtp"
	FromAddress  string
	AWSRegion    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SendTimeout  time.Duration
}

// AdminConfig seeds the first administrator on startup when both fields are set
type AdminConfig struct {
	Email    string
	Password string
}

// defaults applied before the environment is consulted
var defaults = map[string]any{
	"ENV":                    "development",
	"PORT":                   "8080",
	"LOG_LEVEL":              "info",
	"SERVER_READ_TIMEOUT":    15 * time.Second,
	"SERVER_WRITE_TIMEOUT":   15 * time.Second,
	"SERVER_IDLE_TIMEOUT":    60 * time.Second,
	"RBAC_ENFORCE":           false,
	"DB_HOST":                "localhost",
	"DB_PORT":                5432,
	"DB_USER":                "postgres",
	"DB_NAME":                "usergate",
	"DB_SSLMODE":             "disable",
	"DB_MAX_CONNS":           25,
	"DB_MIN_CONNS":           5,
	"DB_MAX_CONN_LIFETIME":   5 * time.Minute,
	"DB_MAX_CONN_IDLE_TIME":  1 * time.Minute,
	"DB_HEALTH_CHECK_PERIOD": 1 * time.Minute,
	"DB_AUTO_MIGRATE":        false,
	"JWT_EXPIRY":             25 * time.Hour,
	"OTP_TTL":                10 * time.Minute,
	"OTP_SWEEP_INTERVAL":     1 * time.Hour,
	"OTP_SWEEP_GRACE":        24 * time.Hour,
	"RATE_LIMIT_PER_HOUR":    5,
	"MAIL_PROVIDER":          "smtp",
	"MAIL_FROM":              "usergate <no-reply@usergate.local>",
	"AWS_REGION":             "us-east-1",
	"SMTP_PORT":              587,
	"MAIL_SEND_TIMEOUT":      10 * time.Second,
}

func newViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

// LoadDatabase reads only the database section, for commands that do not
// serve HTTP
func LoadDatabase() (*DatabaseConfig, error) {
	r := &envReader{v: newViper()}
	db := databaseConfig(r)
	if err := r.err(); err != nil {
		return nil, err
	}
	if db.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &db, nil
}

func databaseConfig(r *envReader) DatabaseConfig {
	v := r.v
	return DatabaseConfig{
		Host:              v.GetString("DB_HOST"),
		Port:              r.positiveInt("DB_PORT"),
		User:              v.GetString("DB_USER"),
		Password:          v.GetString("DB_PASSWORD"),
		Name:              v.GetString("DB_NAME"),
		SSLMode:           v.GetString("DB_SSLMODE"),
		MaxConns:          int32(r.positiveInt("DB_MAX_CONNS")),
		MinConns:          int32(r.positiveInt("DB_MIN_CONNS")),
		MaxConnLifetime:   r.duration("DB_MAX_CONN_LIFETIME"),
		MaxConnIdleTime:   r.duration("DB_MAX_CONN_IDLE_TIME"),
		HealthCheckPeriod: r.duration("DB_HEALTH_CHECK_PERIOD"),
		AutoMigrate:       v.GetBool("DB_AUTO_MIGRATE"),
	}
}

func Load() (*Config, error) {
	r := &envReader{v: newViper()}
	v := r.v

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := v.GetString("ENV")

	cfg := &Config{
		Database: databaseConfig(r),
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Env:          env,
			LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
			ReadTimeout:  r.duration("SERVER_READ_TIMEOUT"),
			WriteTimeout: r.duration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  r.duration("SERVER_IDLE_TIMEOUT"),
			RBACEnforce:  v.GetBool("RBAC_ENFORCE"),
			CORSOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			TokenExpiry:      r.duration("JWT_EXPIRY"),
			OTPTTL:           r.duration("OTP_TTL"),
			OTPSweepInterval: r.duration("OTP_SWEEP_INTERVAL"),
			OTPSweepGrace:    r.duration("OTP_SWEEP_GRACE"),
			RateLimitPerHour: r.positiveInt("RATE_LIMIT_PER_HOUR"),
		},
		Mail: MailConfig{
			Provider:     strings.ToLower(v.GetString("MAIL_PROVIDER")),
			FromAddress:  v.GetString("MAIL_FROM"),
			AWSRegion:    v.GetString("AWS_REGION"),
			SMTPHost:     v.GetString("SMTP_HOST"),
			SMTPPort:     r.positiveInt("SMTP_PORT"),
			SMTPUsername: v.GetString("SMTP_USERNAME"),
			SMTPPassword: v.GetString("SMTP_PASSWORD"),
			SendTimeout:  r.duration("MAIL_SEND_TIMEOUT"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}

	if err := r.err(); err != nil {
		return nil, err
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *MailConfig) validate() error {
	switch c.Provider {
	case "ses":
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when MAIL_PROVIDER is ses")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_PROVIDER is smtp")
		}
	default:
		return fmt.Errorf("MAIL_PROVIDER must be one of ses, smtp (got %q)", c.Provider)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// envReader reads typed settings, remembering every malformed value so
// Load can reject them together
type envReader struct {
	v    *viper.Viper
	errs []error
}

// duration reads key as a Go duration such as "90m". Unset keys use the default.
func (r *envReader) duration(key string) time.Duration {
	raw := strings.TrimSpace(r.v.GetString(key))
	if raw == "" {
		return defaults[key].(time.Duration)
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive duration such as 90m or 24h, got %q", key, raw))
		return defaults[key].(time.Duration)
	}
	return d
}

// positiveInt reads key as an integer greater than zero. Unset keys use the default.
func (r *envReader) positiveInt(key string) int {
	raw := strings.TrimSpace(r.v.GetString(key))
	if raw == "" {
		return defaults[key].(int)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return defaults[key].(int)
	}
	return n
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

// splitList parses a comma separated list, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
