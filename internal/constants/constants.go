package constants

import "time"

const (
	ServiceName    = "tundra-api"
	ServiceVersion = "1.0.0"

	DefaultPort = 3000
)

const (
	DefaultMaxConnections = 10
	DefaultIdleTimeout    = 30 * time.Second
	DefaultConnectTimeout = 2 * time.Second

	MaxReconnectAttempts = 10
	ReconnectInterval    = 5 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultBodyLimitBytes = 1 << 20 // 1 MiB
)

const (
	DefaultJWTExpiresIn = "7d"
	DefaultJWTExpirySec = 7 * 24 * 60 * 60
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const (
	SlowRequestThreshold     = 1 * time.Second
	VerySlowRequestThreshold = 5 * time.Second
)
