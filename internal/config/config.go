// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the server, worker and seed commands.
type Config struct {
	Env      string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	ServerPort     string
	AllowedOrigins []string

	JWTSecret    string
	JWTAccessTTL time.Duration

	PublicBaseURL     string
	ApprovalLinkTTL   time.Duration
	ApprovalRateLimit int

	RedisURL string

	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxRetention    time.Duration
}

// Development reports whether the process runs in a development environment.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads the environment. Missing required keys are reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	cfg := Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getEnvInt("DB_MIN_CONNS", 5)),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),

		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:5173/"),
		ApprovalLinkTTL:   getEnvDuration("APPROVAL_LINK_TTL", 7*24*time.Hour),
		ApprovalRateLimit: getEnvInt("APPROVAL_RATE_LIMIT", 30),

		RedisURL: os.Getenv("REDIS_URL"),

		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxRetention:    getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		if !cfg.Development() {
			missing = append(missing, "JWT_SECRET")
		} else {
			cfg.JWTSecret = "dev-secret-change-me"
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
