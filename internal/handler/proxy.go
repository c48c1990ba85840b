package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"api-passthrough-go/internal/cors"
	"api-passthrough-go/internal/model"
	"api-passthrough-go/internal/service"
)

const redacted = "[REDACTED]"

// ProxyHandler relays /api/* requests through the forwarder.
type ProxyHandler struct {
	forwarder *service.Forwarder
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(fwd *service.Forwarder, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		forwarder: fwd,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request upstream and relays the response verbatim,
// whatever its status, with the CORS header set overlaid.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	resp, err := h.forwarder.Forward(model.NewProxyRequest(req))
	if err != nil {
		return h.writeError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	dst := c.Response().Header()
	for key, vals := range resp.Header {
		dst[key] = append([]string(nil), vals...)
	}
	cors.Apply(dst)

	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already sent, so a copy failure can only truncate
	// the body. It is logged and the connection is left to the server.
	if err := h.stream(c.Response(), resp); err != nil {
		h.logger.Error("streaming response body",
			"err", h.redact(err.Error()),
			"path", req.URL.Path,
		)
	}
	return nil
}

// Preflight answers OPTIONS with 204 and the CORS header set. Nothing is
// forwarded and no hook runs.
func (h *ProxyHandler) Preflight(c echo.Context) error {
	cors.Apply(c.Response().Header())
	return c.NoContent(http.StatusNoContent)
}

// stream copies the upstream body. Event streams are flushed after every
// chunk so clients see events as they arrive.
func (h *ProxyHandler) stream(w *echo.Response, resp *model.ProxyResponse) error {
	if !isEventStream(resp.Header.Get("Content-Type")) {
		_, err := io.Copy(w, resp.Body)
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			w.Flush()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/event-stream"
}

func (h *ProxyHandler) writeError(c echo.Context, err error) error {
	status, msg := errorStatus(err)
	msg = h.redact(msg)

	h.logger.Error("passthrough error",
		"err", h.redact(err.Error()),
		"status", status,
		"path", c.Request().URL.Path,
	)

	cors.Apply(c.Response().Header())
	return c.JSON(status, map[string]string{"error": msg})
}

// redact removes the configured credential from text that may echo it back,
// such as transport errors carrying the outbound request.
func (h *ProxyHandler) redact(s string) string {
	key := h.forwarder.APIKey()
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, redacted)
}

// errorStatus picks the status and message reported for err. An error in the
// chain that carries its own status supplies both; anything else is a 500
// with the full message.
func errorStatus(err error) (int, string) {
	var sc model.StatusCoder
	if errors.As(err, &sc) {
		if code := model.StatusOf(err, 0); code != 0 {
			if e, ok := sc.(error); ok {
				return code, e.Error()
			}
			return code, err.Error()
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, httpErrorMessage(he)
	}

	return http.StatusInternalServerError, err.Error()
}
