package auth

import (
	"github.com/gin-gonic/gin"

	"tundra/internal/logger"
	"tundra/pkg/envelope"
	apperrors "tundra/pkg/errors"
	"tundra/pkg/middleware"
)

type Handler struct {
	service *Service
	log     logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts the auth endpoints. requireAuth guards the profile
// endpoint; loginMiddleware (rate limiting) applies to login only.
func (h *Handler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc, loginMiddleware ...gin.HandlerFunc) {
	group := router.Group("/auth")
	{
		handlers := append(loginMiddleware, h.Login)
		group.POST("/login", handlers...)
		group.GET("/user", requireAuth, h.CurrentUser)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrValidation.WithMessage("Invalid request body").WithCause(err)) //nolint:errcheck
		return
	}

	resp, existing, err := h.service.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}

	msg := "User registered and logged in successfully"
	if existing {
		msg = "Login successful"
	}
	envelope.Write(c, envelope.Success(resp, msg))
}

func (h *Handler) CurrentUser(c *gin.Context) {
	claims := middleware.Identity(c)
	if claims == nil {
		c.Error(apperrors.ErrUnauthorized) //nolint:errcheck
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), claims)
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}

	envelope.Write(c, envelope.Success(user, "User information retrieved successfully"))
}
