package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"api-passthrough-go/internal/cors"
)

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	for k, want := range cors.Headers() {
		if got := h.Values(k); len(got) != 1 || got[0] != want[0] {
			t.Errorf("%s = %v, want %v", k, got, want)
		}
	}
}

func TestCORS_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(CORS())
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := serve(e, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	assertCORS(t, rec.Header())
}

func TestCORS_CoversRouterAndMiddlewareErrors(t *testing.T) {
	e := echo.New()
	e.Use(CORS())
	e.Use(echomw.BodyLimit("1B"))
	e.POST("/api/*", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	t.Run("not found", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/nowhere")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
		assertCORS(t, rec.Header())
	})

	t.Run("body too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"a":1}`))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
		}
		assertCORS(t, rec.Header())
	})
}

func TestCORS_HandlerOverlayKeepsSingleValues(t *testing.T) {
	e := echo.New()
	e.Use(CORS())
	e.GET("/api/*", func(c echo.Context) error {
		cors.Apply(c.Response().Header())
		return c.NoContent(http.StatusOK)
	})

	assertCORS(t, serve(e, http.MethodGet, "/api/threads").Header())
}
