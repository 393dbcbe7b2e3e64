package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novel-client/internal/models"
)

// Handler - HTTP обработчик выдачи токенов.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger.Named("AuthHandler")}
}

// RegisterRoutes подключает POST /auth/login. middlewares (например, rate limit) выполняются перед Login.
func (h *Handler) RegisterRoutes(router gin.IRouter, middlewares ...gin.HandlerFunc) {
	handlers := append(middlewares, h.Login)
	router.POST("/auth/login", handlers...)
}

// Login принимает учетные данные только из заголовка Authorization (Basic).
func (h *Handler) Login(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok || username == "" || password == "" {
		c.Header("WWW-Authenticate", `Basic realm="novel"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Missing credentials"})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Invalid username or password"})
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
