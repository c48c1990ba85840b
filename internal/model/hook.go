package model

import (
	"context"
	"net/http"
)

// HeaderTransformer returns extra headers merged last into every outbound
// request. Implementations may block; the forwarder waits for the result.
type HeaderTransformer interface {
	TransformHeaders(ctx context.Context, r *http.Request) (map[string]string, error)
}

// HeaderTransformFunc adapts a function to HeaderTransformer.
type HeaderTransformFunc func(ctx context.Context, r *http.Request) (map[string]string, error)

// TransformHeaders calls f(ctx, r).
func (f HeaderTransformFunc) TransformHeaders(ctx context.Context, r *http.Request) (map[string]string, error) {
	return f(ctx, r)
}

// BodyTransformer rewrites the parsed JSON body of POST, PUT and PATCH
// requests. body is the decoded value (numbers as json.Number); the returned
// value is serialized as the outbound body.
type BodyTransformer interface {
	TransformBody(ctx context.Context, r *http.Request, body any) (any, error)
}

// BodyTransformFunc adapts a function to BodyTransformer.
type BodyTransformFunc func(ctx context.Context, r *http.Request, body any) (any, error)

// TransformBody calls f(ctx, r, body).
func (f BodyTransformFunc) TransformBody(ctx context.Context, r *http.Request, body any) (any, error) {
	return f(ctx, r, body)
}
