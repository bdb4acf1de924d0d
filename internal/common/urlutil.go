package common

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL canonicalizes URLs for deduplication: strip fragments,
// lowercase scheme and host, sort query params, drop trailing slash on the
// root path.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Path == "/" {
		u.Path = ""
	}

	// Sort query parameters for consistent comparison
	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := url.Values{}
		for _, k := range keys {
			values[k] = query[k]
		}
		u.RawQuery = values.Encode()
	}

	return u.String()
}

// Domain returns the host portion of a URL, or "" when it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameOrigin reports whether two URLs share a host. A leading "www." is
// ignored so https://example.com and https://www.example.com count as the
// same site.
func SameOrigin(a, b string) bool {
	ha := strings.TrimPrefix(Domain(a), "www.")
	hb := strings.TrimPrefix(Domain(b), "www.")
	return ha != "" && ha == hb
}
