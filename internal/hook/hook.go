// Package hook provides declarative header and body transforms built from configuration.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os"

	"github.com/tidwall/jsonc"

	"api-passthrough-go/internal/config"
	"api-passthrough-go/internal/model"
)

// Set holds the transforms configured for the binary. A nil field means the
// corresponding hook is not configured.
type Set struct {
	Headers model.HeaderTransformer
	Body    model.BodyTransformer
}

// StaticHeaders adds a fixed set of headers to every outbound request.
type StaticHeaders struct {
	headers map[string]string
}

// NewStaticHeaders expands ${VAR} references in values once, at construction.
func NewStaticHeaders(set map[string]string) *StaticHeaders {
	headers := make(map[string]string, len(set))
	for k, v := range set {
		headers[k] = os.ExpandEnv(v)
	}
	return &StaticHeaders{headers: headers}
}

// TransformHeaders returns a copy of the configured headers.
func (s *StaticHeaders) TransformHeaders(context.Context, *http.Request) (map[string]string, error) {
	return maps.Clone(s.headers), nil
}

// BodyMerge merges configured fields into JSON object bodies. Configured
// fields replace body fields of the same name.
type BodyMerge struct {
	fields map[string]any
}

// NewBodyMerge returns a BodyMerge for fields.
func NewBodyMerge(fields map[string]any) *BodyMerge {
	return &BodyMerge{fields: maps.Clone(fields)}
}

// TransformBody returns a new object; the inbound value is not mutated.
func (b *BodyMerge) TransformBody(_ context.Context, _ *http.Request, body any) (any, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, model.NewStatusError(http.StatusBadRequest, "request body must be a JSON object, got %s", kindOf(body))
	}
	out := make(map[string]any, len(obj)+len(b.fields))
	maps.Copy(out, obj)
	maps.Copy(out, b.fields)
	return out, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FromConfig builds the hooks described by cfg. The merge file, when set, is
// read as JSON with comments; inline fields override fields from the file.
func FromConfig(cfg *config.Config) (*Set, error) {
	set := &Set{}

	if len(cfg.Hooks.Headers.Set) > 0 {
		set.Headers = NewStaticHeaders(cfg.Hooks.Headers.Set)
	}

	if !cfg.Hooks.Body.Enabled() {
		return set, nil
	}

	fields := make(map[string]any)
	if path := cfg.Hooks.Body.MergeFile; path != "" {
		fromFile, err := loadMergeFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(fields, fromFile)
	}
	maps.Copy(fields, cfg.Hooks.Body.Set)
	set.Body = NewBodyMerge(fields)

	return set, nil
}

func loadMergeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read body merge file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse body merge file %s: %w", path, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("parse body merge file %s: top-level value must be an object", path)
	}
	return fields, nil
}
