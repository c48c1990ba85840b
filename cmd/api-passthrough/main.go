package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"api-passthrough-go/internal/client"
	"api-passthrough-go/internal/config"
	"api-passthrough-go/internal/handler"
	"api-passthrough-go/internal/hook"
	"api-passthrough-go/internal/metrics"
	"api-passthrough-go/internal/middleware"
	"api-passthrough-go/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("api-passthrough"),
		kong.Description("Credential-injecting passthrough for a LangGraph-compatible API."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newEcho,
			newUpstreamClient,
			hook.FromConfig,
			newForwarder,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, logNotice, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Server.ReadTimeout = 30 * time.Second
	// Streamed responses (event streams) can run for as long as upstream keeps
	// them open, so there is no write deadline.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond, logger))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func newUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) service.Upstream {
	return client.NewUpstreamClient(cfg, logger, m)
}

func newForwarder(up service.Upstream, cfg *config.Config, hooks *hook.Set, logger *slog.Logger, m *metrics.Metrics) (*service.Forwarder, error) {
	opts := service.Options{
		APIURL:          cfg.Upstream.APIURL,
		APIKey:          cfg.Upstream.APIKey,
		BaseRoute:       cfg.Passthrough.BaseRoute,
		ForwardHeaders:  cfg.Passthrough.ForwardHeaders,
		HeaderTransform: hooks.Headers,
		BodyTransform:   hooks.Body,
	}
	return service.New(up, opts, logger, m)
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func logNotice(cfg *config.Config, logger *slog.Logger) {
	cfg.LogNotice(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"api_url", cfg.Upstream.APIURL,
				"base_route", cfg.Passthrough.BaseRoute,
				"runtime", cfg.Passthrough.Runtime,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
