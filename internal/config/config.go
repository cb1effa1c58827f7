// Package config reads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the process configuration. Business settings such as tax rates
// live in the app_settings table, not here.
type Config struct {
	DatabaseURL    string
	Port           string
	Env            string
	LogLevel       string
	JWTSecret      string
	AllowedOrigins string

	RedisURL          string
	MailQueueKey      string
	DashboardCacheTTL time.Duration

	ApprovalEngineURL   string
	ApprovalEngineToken string
	PublicBaseURL       string

	MetricsPrefix   string
	SettingsRefresh time.Duration
	ShutdownTimeout time.Duration
}

// Load reads .env when present and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           getEnv("SERVER_PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL:          os.Getenv("REDIS_URL"),
		MailQueueKey:      getEnv("MAIL_QUEUE_KEY", "procflow:mail:purchase-orders"),
		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", 3*time.Minute),

		ApprovalEngineURL:   os.Getenv("APPROVAL_ENGINE_URL"),
		ApprovalEngineToken: os.Getenv("APPROVAL_ENGINE_TOKEN"),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		MetricsPrefix:   getEnv("METRICS_PREFIX", "procflow"),
		SettingsRefresh: getEnvAsDuration("SETTINGS_REFRESH_INTERVAL", time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// LogFields describes the configuration without secrets.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("env", c.Env),
		zap.String("port", c.Port),
		zap.String("log_level", c.LogLevel),
		zap.Bool("redis", c.RedisURL != ""),
		zap.Bool("approval_engine", c.ApprovalEngineURL != ""),
		zap.Bool("jwt", c.JWTSecret != ""),
		zap.Duration("dashboard_cache_ttl", c.DashboardCacheTTL),
		zap.String("metrics_prefix", c.MetricsPrefix),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
