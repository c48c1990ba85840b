package service

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"api-passthrough-go/internal/metrics"
	"api-passthrough-go/internal/model"
)

// apiKeyHeader carries the configured credential upstream.
const apiKeyHeader = "X-Api-Key"

// propagateHeaders keeps inbound headers named x-* or authorization, plus any
// names in extra (lowercase). All values of a kept header are copied.
func propagateHeaders(src http.Header, extra map[string]bool) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-") || lower == "authorization" || extra[lower] {
			canonical := http.CanonicalHeaderKey(key)
			dst[canonical] = append(dst[canonical], vals...)
		}
	}
	return dst
}

// outboundHeaders merges three layers, each overwriting colliding names of
// the one before: propagated inbound headers, the credential, the hook output.
func (f *Forwarder) outboundHeaders(pr *model.ProxyRequest) (http.Header, error) {
	h := propagateHeaders(pr.Header, f.forwardHeaders)
	h.Set(apiKeyHeader, f.apiKey)

	if f.headerHook == nil {
		return h, nil
	}
	extra, err := f.transformHeaders(pr)
	if err != nil {
		f.recordError(metrics.StageHeaders)
		return nil, fmt.Errorf("header transform: %w", err)
	}
	// Sorted so that names differing only in case resolve the same way every time.
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		h.Set(k, extra[k])
	}
	return h, nil
}

func (f *Forwarder) transformHeaders(pr *model.ProxyRequest) (extra map[string]string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f.headerHook.TransformHeaders(pr.Ctx, pr.Inbound)
}
