package user

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tundra/internal/logger"
	"tundra/pkg/envelope"
	apperrors "tundra/pkg/errors"
)

type Handler struct {
	service *Service
	log     logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/users")
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	envelope.Write(c, envelope.Success(users, "Users retrieved successfully"))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	envelope.Write(c, envelope.Success(u, "User retrieved successfully"))
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrValidation.WithMessage("Invalid request body").WithCause(err)) //nolint:errcheck
		return
	}

	u, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	envelope.Write(c, envelope.Created(u, "User created successfully"))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrValidation.WithMessage("Invalid request body").WithCause(err)) //nolint:errcheck
		return
	}

	u, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	envelope.Write(c, envelope.Success(u, "User updated successfully"))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	envelope.Write(c, envelope.Success(nil, "User deleted successfully"))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Error(apperrors.ErrValidation.WithMessage("id must be a positive integer")) //nolint:errcheck
		return 0, false
	}
	return id, true
}
