package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/config"
	"api-passthrough-go/internal/metrics"
)

// forwardedMethods are relayed upstream. OPTIONS is answered locally.
var forwardedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// RegisterRoutes wires all route handlers onto the Echo instance. The metrics
// endpoint is mounted only when enabled in cfg.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.Match(forwardedMethods, "/api/*", proxy.Handle)
	e.OPTIONS("/api/*", proxy.Preflight)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}
}
