package middleware

import (
	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/cors"
)

// CORS returns an Echo middleware that attaches the fixed cross-origin header
// set before the handler runs, so responses written by the router or by other
// middleware (404, 413, 429) carry it too.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cors.Apply(c.Response().Header())
			return next(c)
		}
	}
}
