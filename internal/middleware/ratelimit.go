package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimitIdle is how long a client's limiter is kept after its last request.
const rateLimitIdle = 3 * time.Minute

// RateLimiter returns a per-client-IP limiter allowing rps requests per
// second with a burst of ceil(rps). Preflight requests are not limited.
func RateLimiter(rps float64, logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "rate_limiter")

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     max(int(math.Ceil(rps)), 1),
		ExpiresIn: rateLimitIdle,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("rate limit exceeded",
				"client", identifier,
				"path", c.Request().URL.Path,
			)
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded").SetInternal(err)
		},
	})
}
