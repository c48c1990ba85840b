package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports where the passthrough forwards to. The API key is never included.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      string(h.version),
		"api_url":      h.cfg.Upstream.APIURL,
		"base_route":   h.cfg.Passthrough.BaseRoute,
		"runtime":      h.cfg.Passthrough.Runtime,
		"api_key_set":  h.cfg.Upstream.APIKey != "",
		"body_hook":    h.cfg.Hooks.Body.Enabled(),
		"header_hooks": len(h.cfg.Hooks.Headers.Set),
	})
}
