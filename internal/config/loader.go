package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"tundra/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", constants.EnvDevelopment)
	viper.SetDefault("server.port", constants.DefaultPort)
	viper.SetDefault("server.body_limit_bytes", constants.DefaultBodyLimitBytes)

	viper.SetDefault("database.postgres.max_connections", constants.DefaultMaxConnections)
	viper.SetDefault("database.postgres.idle_timeout", constants.DefaultIdleTimeout)
	viper.SetDefault("database.postgres.connect_timeout", constants.DefaultConnectTimeout)
	viper.SetDefault("database.postgres.max_reconnect_attempts", constants.MaxReconnectAttempts)
	viper.SetDefault("database.postgres.reconnect_interval", constants.ReconnectInterval)
	viper.SetDefault("database.postgres.sslmode", "disable")

	viper.SetDefault("auth.jwt_expires_in", constants.DefaultJWTExpiresIn)

	viper.SetDefault("cors.allow_origin", "*")
	viper.SetDefault("cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	viper.BindEnv("environment", "ENVIRONMENT")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.body_limit_bytes", "SERVER_BODY_LIMIT_BYTES")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")
	viper.BindEnv("database.run_migrations", "DATABASE_RUN_MIGRATIONS")

	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("auth.jwt_expires_in", "JWT_EXPIRES_IN")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}
