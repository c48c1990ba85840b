package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/client"
	"api-passthrough-go/internal/config"
	"api-passthrough-go/internal/metrics"
	"api-passthrough-go/internal/service"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream-Method", r.Method)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{APIURL: upstream.URL, IdleConnections: 10},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	logger := discardLogger()
	m := metrics.New()
	uc := client.NewUpstreamClient(cfg, logger, m)
	fwd, err := service.New(uc, service.Options{APIURL: upstream.URL, APIKey: "test-key"}, logger, m)
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}

	proxy := NewProxyHandler(fwd, logger)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	RegisterRoutes(e, cfg, m, proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		forwarded  bool
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK, false},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK, false},
		{"GET /api/threads", http.MethodGet, "/api/threads?limit=1", http.StatusOK, true},
		{"POST /api/runs", http.MethodPost, "/api/runs", http.StatusOK, true},
		{"PUT /api/store/items", http.MethodPut, "/api/store/items", http.StatusOK, true},
		{"PATCH /api/threads/1", http.MethodPatch, "/api/threads/1", http.StatusOK, true},
		{"DELETE /api/threads/1", http.MethodDelete, "/api/threads/1", http.StatusOK, true},
		{"OPTIONS /api/threads", http.MethodOptions, "/api/threads", http.StatusNoContent, false},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK, false},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := rec.Header().Get("X-Upstream-Method")
			if tt.forwarded && got != tt.method {
				t.Errorf("upstream method = %q, want %q", got, tt.method)
			}
			if !tt.forwarded && got != "" {
				t.Errorf("request was forwarded upstream")
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: false, Path: "/metrics"}}
	logger := discardLogger()
	fwd, err := service.New(panicUpstream{t: t}, withURL(service.Options{}), logger, nil)
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), NewProxyHandler(fwd, logger), NewHealthHandler(cfg, "test"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestErrorHandler(t *testing.T) {
	logger := discardLogger()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	e.GET("/limited", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	})
	e.GET("/boom", func(echo.Context) error {
		return errors.New("database down")
	})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"not found", http.MethodGet, "/nowhere", http.StatusNotFound, "Not Found"},
		{"http error", http.MethodGet, "/limited", http.StatusTooManyRequests, "rate limit exceeded"},
		{"plain error", http.MethodGet, "/boom", http.StatusInternalServerError, "database down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, http.NoBody))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if msg := decodeError(t, rec); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want to contain %q", msg, tt.wantMsg)
			}
			assertCORS(t, rec.Header())
		})
	}
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(discardLogger())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/nowhere", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}
