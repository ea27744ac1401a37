package handler

import (
	"net/http"

	"bidhub/config"
	"bidhub/internal/delivery/api/response"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	serviceName string
}

// NewHealthHandler is the constructor for HealthHandler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{serviceName: cfg.Env.ServiceName}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{
		"service": h.serviceName,
		"status":  "ok",
	}, "")
}
