// Package service implements the request transformation pipeline of the passthrough.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"api-passthrough-go/internal/metrics"
	"api-passthrough-go/internal/model"
)

// ErrMissingAPIURL is returned by New when no upstream origin is configured.
var ErrMissingAPIURL = errors.New("API URL is required: pass it when constructing the forwarder or set LANGGRAPH_API_URL")

// Upstream performs the single outbound call of a forwarded request.
type Upstream interface {
	DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader, contentLength int64) (*model.ProxyResponse, error)
}

// Options is the setup-time configuration of a Forwarder.
type Options struct {
	// APIURL is the upstream origin. Required.
	APIURL string
	// APIKey is sent as x-api-key on every request. May be empty.
	APIKey string
	// BaseRoute is the mount prefix stripped after the /api/ marker.
	BaseRoute string
	// ForwardHeaders are extra inbound header names propagated upstream.
	ForwardHeaders []string

	HeaderTransform model.HeaderTransformer
	// BodyTransform applies to POST, PUT and PATCH only.
	BodyTransform model.BodyTransformer
}

// Forwarder rewrites inbound requests and sends them to the upstream origin.
// It holds no per-request state and is safe for concurrent use.
type Forwarder struct {
	upstream       Upstream
	apiURL         string
	apiKey         string
	baseRoute      string
	forwardHeaders map[string]bool
	headerHook     model.HeaderTransformer
	bodyHook       model.BodyTransformer
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// New creates a Forwarder. It fails when the upstream origin is missing or is
// not an absolute URL. The metrics parameter is optional.
func New(up Upstream, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Forwarder, error) {
	origin := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if origin == "" {
		return nil, ErrMissingAPIURL
	}
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse API URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("API URL must be absolute (scheme://host); got %q", opts.APIURL)
	}

	forward := make(map[string]bool, len(opts.ForwardHeaders))
	for _, name := range opts.ForwardHeaders {
		forward[strings.ToLower(strings.TrimSpace(name))] = true
	}

	return &Forwarder{
		upstream:       up,
		apiURL:         origin,
		apiKey:         opts.APIKey,
		baseRoute:      normalizeBaseRoute(opts.BaseRoute),
		forwardHeaders: forward,
		headerHook:     opts.HeaderTransform,
		bodyHook:       opts.BodyTransform,
		logger:         logger.With("component", "forwarder"),
		metrics:        m,
	}, nil
}

// APIKey returns the configured credential, for redaction by callers.
func (f *Forwarder) APIKey() string {
	return f.apiKey
}

// Target returns the upstream URL an inbound escaped path and raw query map to.
func (f *Forwarder) Target(escapedPath, rawQuery string) string {
	return upstreamURL(f.apiURL, upstreamPath(escapedPath, f.baseRoute), filterQuery(rawQuery))
}

// Forward sends a ProxyRequest upstream and returns the response.
// The caller is responsible for closing the response body.
//
// Headers are built before the body is read, so a failing header hook never
// consumes the inbound body.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := f.Target(pr.Path, pr.RawQuery)

	header, err := f.outboundHeaders(pr)
	if err != nil {
		return nil, err
	}

	body, length, err := f.outboundBody(pr, header)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
		"target", target,
	)

	resp, err := f.upstream.DoStream(pr.Ctx, pr.Method, target, header, body, length)
	if err != nil {
		f.recordError(metrics.StageUpstream)
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}
	return resp, nil
}

func (f *Forwarder) recordError(stage string) {
	if f.metrics != nil {
		f.metrics.ForwardErrors.WithLabelValues(stage).Inc()
	}
}
