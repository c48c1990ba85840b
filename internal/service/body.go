package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"api-passthrough-go/internal/metrics"
	"api-passthrough-go/internal/model"
)

// bodyMethods are the only methods whose inbound body is read and forwarded.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// carriesBody reports whether method forwards a request body.
func carriesBody(method string) bool {
	return bodyMethods[method]
}

// outboundBody returns the upstream body and its length (0 when unknown or empty).
// Without a body hook the inbound stream is passed through untouched. With a
// hook the body is buffered, parsed as JSON, transformed and re-serialized;
// Content-Type is set to application/json unless a header layer set it.
func (f *Forwarder) outboundBody(pr *model.ProxyRequest, header http.Header) (io.Reader, int64, error) {
	if !carriesBody(pr.Method) {
		return nil, 0, nil
	}

	if f.bodyHook == nil {
		if pr.Body == nil || pr.Body == http.NoBody || pr.ContentLength == 0 {
			return nil, 0, nil
		}
		return pr.Body, max(pr.ContentLength, 0), nil
	}

	var raw []byte
	if pr.Body != nil {
		var err error
		raw, err = io.ReadAll(pr.Body)
		if err != nil {
			f.recordError(metrics.StageBody)
			return nil, 0, fmt.Errorf("read request body: %w", err)
		}
	}

	parsed, err := decodeJSON(raw)
	if err != nil {
		f.recordError(metrics.StageBody)
		return nil, 0, fmt.Errorf("parse request body: %w", err)
	}

	out, err := f.transformBody(pr, parsed)
	if err != nil {
		f.recordError(metrics.StageBody)
		return nil, 0, fmt.Errorf("body transform: %w", err)
	}

	encoded, err := encodeJSON(out)
	if err != nil {
		f.recordError(metrics.StageBody)
		return nil, 0, fmt.Errorf("encode request body: %w", err)
	}

	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return bytes.NewReader(encoded), int64(len(encoded)), nil
}

func (f *Forwarder) transformBody(pr *model.ProxyRequest, body any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f.bodyHook.TransformBody(pr.Ctx, pr.Inbound, body)
}

// decodeJSON parses a single JSON value, keeping numbers as json.Number.
// An empty buffer decodes to an empty object.
func decodeJSON(raw []byte) (any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

// encodeJSON serializes v without HTML escaping or a trailing newline.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
