// Package model defines shared types for the passthrough.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents an inbound request to be forwarded upstream.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	// Path is the escaped inbound path, route marker included.
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
	// ContentLength is -1 when unknown.
	ContentLength int64
	// Inbound is the originating request, handed to hooks.
	Inbound *http.Request
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// NewProxyRequest captures an inbound request for forwarding.
func NewProxyRequest(r *http.Request) *ProxyRequest {
	return &ProxyRequest{
		Ctx:           r.Context(),
		Method:        r.Method,
		Path:          r.URL.EscapedPath(),
		RawQuery:      r.URL.RawQuery,
		Header:        r.Header,
		Body:          r.Body,
		ContentLength: r.ContentLength,
		Inbound:       r,
	}
}
