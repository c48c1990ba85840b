// Package cors holds the fixed cross-origin header set attached to every
// passthrough response.
package cors

import "net/http"

// Header values sent on every response. They are not configurable.
const (
	AllowOrigin   = "*"
	AllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	AllowHeaders  = "*"
	ExposeHeaders = "content-location"
)

// Headers returns a fresh copy of the CORS header set.
func Headers() http.Header {
	return http.Header{
		"Access-Control-Allow-Origin":   {AllowOrigin},
		"Access-Control-Allow-Methods":  {AllowMethods},
		"Access-Control-Allow-Headers":  {AllowHeaders},
		"Access-Control-Expose-Headers": {ExposeHeaders},
	}
}

// Apply overlays the CORS header set onto h, replacing any existing values
// for those names and leaving every other header untouched.
func Apply(h http.Header) {
	for k, v := range Headers() {
		h[k] = v
	}
}
