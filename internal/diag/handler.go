// Package diag exposes the service-level endpoints: root health summary,
// status, info and echo. These carry operational data inside the standard
// envelope.
package diag

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"tundra/internal/config"
	"tundra/internal/constants"
	"tundra/internal/database"
	"tundra/internal/logger"
	"tundra/pkg/envelope"
	apperrors "tundra/pkg/errors"
)

type Handler struct {
	cfg     *config.Config
	db      *database.Manager
	log     logger.Logger
	started time.Time
}

func NewHandler(cfg *config.Config, db *database.Manager, log logger.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		log:     log,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Root)

	api := router.Group("/api")
	{
		api.GET("/status", h.Status)
		api.GET("/info", h.Info)
		api.POST("/echo", h.Echo)
	}
}

// Root reports overall liveness plus the database connection state. It stays
// code 200 even while the database reconnects; the nested status tells the
// real story.
func (h *Handler) Root(c *gin.Context) {
	status := h.db.ConnectionStatus()

	dbStatus := "disconnected"
	switch {
	case status.Connected && status.ReconnectAttempts == 0:
		dbStatus = "healthy"
	case status.ReconnectAttempts > 0:
		dbStatus = fmt.Sprintf("reconnecting (%d/%d)", status.ReconnectAttempts, status.MaxReconnectAttempts)
	}

	envelope.Write(c, envelope.Success(gin.H{
		"message":   "Tundra API is running!",
		"version":   constants.ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database": gin.H{
			"connected":          status.Connected,
			"host":               h.cfg.Database.Postgres.Host,
			"database":           h.cfg.Database.Postgres.DBName,
			"reconnect_attempts": status.ReconnectAttempts,
			"status":             dbStatus,
		},
	}, "Health check completed successfully"))
}

func (h *Handler) Status(c *gin.Context) {
	envelope.Write(c, envelope.Success(gin.H{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"environment":    h.cfg.Environment,
		"version":        constants.ServiceVersion,
	}, "API status retrieved successfully"))
}

func (h *Handler) Info(c *gin.Context) {
	envelope.Write(c, envelope.Success(gin.H{
		"name":        constants.ServiceName,
		"version":     constants.ServiceVersion,
		"environment": h.cfg.Environment,
		"endpoints": []string{
			"GET /",
			"GET /api/status",
			"GET /api/info",
			"POST /api/echo",
			"POST /auth/login",
			"GET /auth/user",
			"GET /api/users",
			"POST /api/users",
		},
	}, "API information retrieved successfully"))
}

// Echo reflects the request body back. Useful for client connectivity and
// envelope-contract checks.
func (h *Handler) Echo(c *gin.Context) {
	var body interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperrors.ErrValidation.WithMessage("Invalid request body").WithCause(err)) //nolint:errcheck
		return
	}

	envelope.Write(c, envelope.Success(gin.H{
		"echo":      body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, "Echo request processed successfully"))
}
