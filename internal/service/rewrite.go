package service

import (
	"net/url"
	"regexp"
	"strings"
)

// routeMarker is the leading segment that mounts the passthrough.
var routeMarker = regexp.MustCompile(`^/?api/`)

// reservedQueryParams are catch-all route parameters added by web frameworks
// in front of the passthrough. They never reach the upstream.
var reservedQueryParams = map[string]bool{
	"_path":     true,
	"nxtP_path": true,
}

// normalizeBaseRoute trims surrounding slashes and appends exactly one.
// An empty or all-slash route disables mount prefix stripping.
func normalizeBaseRoute(route string) string {
	route = strings.Trim(route, "/")
	if route == "" {
		return ""
	}
	return route + "/"
}

// upstreamPath strips the route marker and then the normalized mount prefix
// from an escaped inbound path. The prefix is removed once, and only when the
// remaining path starts with it; a remaining path equal to the bare prefix
// becomes empty.
func upstreamPath(escapedPath, baseRoute string) string {
	p := routeMarker.ReplaceAllLiteralString(escapedPath, "")
	p = strings.TrimPrefix(p, "/")
	if baseRoute == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, baseRoute); ok {
		return rest
	}
	if p == strings.TrimSuffix(baseRoute, "/") {
		return ""
	}
	return p
}

// filterQuery drops the reserved parameters from a raw query string. The
// remaining pairs keep their original bytes and order.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if reservedQueryParams[key] {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// upstreamURL joins the origin, the rewritten path and the filtered query.
func upstreamURL(origin, path, query string) string {
	target := origin + "/" + path
	if query != "" {
		target += "?" + query
	}
	return target
}
