package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Database
	DatabaseDriver string `env:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" default:"libraryhub.db"`
	DBLogMode      bool   `env:"DB_LOG_MODE" default:"false"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `env:"SESSION_TTL" default:"168h"`
	SessionCookie string        `env:"SESSION_COOKIE" default:"libraryhub_session"`

	// Redis session store; empty keeps sessions in process
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Lending policy
	LoanPeriod time.Duration `env:"LOAN_PERIOD" default:"336h"`

	// Login throttling, per client IP
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" default:"1"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" default:"5"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// a missing .env is fine, the process environment still applies
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	// Database
	if err := loadEnvString(&config.DatabaseDriver, "DATABASE_DRIVER", "sqlite"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", "libraryhub.db"); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.DBLogMode, "DB_LOG_MODE", false); err != nil {
		return nil, err
	}

	// Sessions
	if err := loadEnvStringRequired(&config.SessionSecret, "SESSION_SECRET"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SessionTTL, "SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.SessionCookie, "SESSION_COOKIE", "libraryhub_session"); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}

	if err := loadEnvDuration(&config.LoanPeriod, "LOAN_PERIOD", 14*24*time.Hour); err != nil {
		return nil, err
	}

	if err := loadEnvFloat(&config.LoginRateLimit, "LOGIN_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.LoginRateBurst, "LOGIN_RATE_BURST", 5); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringRequired(target *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("required environment variable %s is not set", key)
	}
	*target = value
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	validDrivers := []string{"postgres", "sqlite"}
	if !contains(validDrivers, c.DatabaseDriver) {
		errors = append(errors, fmt.Sprintf("DATABASE_DRIVER must be one of: %s", strings.Join(validDrivers, ", ")))
	}
	if c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL must be set")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(c.SessionSecret) < 32 {
		errors = append(errors, "SESSION_SECRET should be at least 32 characters long")
	}
	if c.SessionTTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}
	if c.LoanPeriod <= 0 {
		errors = append(errors, "LOAN_PERIOD must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginRateBurst < 1 {
		errors = append(errors, "LOGIN_RATE_LIMIT must be positive and LOGIN_RATE_BURST at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// SlogLevel maps LOG_LEVEL onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger: JSON in production or when LOG_FORMAT=json.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" || c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
