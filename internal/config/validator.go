package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateEnvironment(cfg.Environment); err != nil {
		errors = append(errors, err)
	}

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validatePostgres(cfg.Database.Postgres); err != nil {
		errors = append(errors, err)
	}

	if err := validateAuth(cfg); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateEnvironment(env string) error {
	switch env {
	case "development", "production", "test":
		return nil
	default:
		return &ValidationError{
			Field:   "environment",
			Message: fmt.Sprintf("unknown environment: %s (valid: development, production, test)", env),
		}
	}
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.BodyLimitBytes <= 0 {
		return &ValidationError{
			Field:   "server.body_limit_bytes",
			Message: "body limit must be positive",
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	if cfg.MaxReconnectAttempts < 0 {
		return &ValidationError{
			Field:   "database.postgres.max_reconnect_attempts",
			Message: "max_reconnect_attempts must be non-negative",
		}
	}

	if cfg.ReconnectInterval < 0 {
		return &ValidationError{
			Field:   "database.postgres.reconnect_interval",
			Message: "reconnect_interval must be non-negative",
		}
	}

	return nil
}

func validateAuth(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" && cfg.IsProduction() {
		return &ValidationError{
			Field:   "auth.jwt_secret",
			Message: "JWT secret is required in production",
		}
	}

	if cfg.Auth.RateLimit.Enabled {
		if cfg.Auth.RateLimit.RPS <= 0 {
			return &ValidationError{
				Field:   "auth.rate_limit.rps",
				Message: "rps must be positive when rate limiting is enabled",
			}
		}
		if cfg.Auth.RateLimit.Burst <= 0 {
			return &ValidationError{
				Field:   "auth.rate_limit.burst",
				Message: "burst must be positive when rate limiting is enabled",
			}
		}
	}

	return nil
}
