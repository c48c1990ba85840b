package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/cors"
)

// ErrorHandler returns an echo.HTTPErrorHandler that renders router and
// middleware failures (unknown route, body too large, rate limited) in the
// same {"error": message} shape as forwarding failures.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"err", err,
				"status", status,
				"path", c.Request().URL.Path,
			)
		}

		cors.Apply(c.Response().Header())

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]string{"error": msg})
		}
		if werr != nil {
			logger.Error("writing error response", "err", werr)
		}
	}
}

// httpErrorMessage flattens an echo.HTTPError message to a string.
func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
