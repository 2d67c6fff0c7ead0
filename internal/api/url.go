package api

import (
	"net"
	"net/url"
	"strings"
)

// EnsureAbsoluteURL turns a storage URL candidate into an absolute,
// browser-reachable URL. Storage backends hand back URLs in several broken
// shapes: relative paths, double-encoded strings, and container-internal
// "localhost" hosts. Three strategies run in order; ok is false when none
// of them yields an absolute URL.
func EnsureAbsoluteURL(raw, storageBase string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	// Already absolute.
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return normalizeStorageURL(u), true
	}

	// Double-encoded absolute URL (e.g. "https%3A%2F%2F...").
	if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
		if u, err := url.Parse(decoded); err == nil && u.Scheme != "" && u.Host != "" {
			return normalizeStorageURL(u), true
		}
	}

	// Relative path, joined under the public storage base. The base path is
	// part of the bucket address and must survive the join, so the path is
	// appended rather than RFC 3986 resolved.
	if storageBase != "" {
		joined := strings.TrimRight(storageBase, "/") + "/" + strings.TrimLeft(raw, "/")
		if u, err := url.Parse(joined); err == nil && u.Scheme != "" && u.Host != "" {
			return normalizeStorageURL(u), true
		}
	}

	return "", false
}

// PublicURLFromKey derives a public URL from a bare storage key, the last
// resort when the backend returned no usable file URL.
func PublicURLFromKey(storageBase, key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return ""
	}
	if storageBase == "" {
		return key
	}
	return strings.TrimRight(storageBase, "/") + "/" + key
}

// normalizeStorageURL rewrites container-internal localhost hosts to the
// loopback IP and decodes percent-escaped path segments so keys with
// spaces render correctly.
func normalizeStorageURL(u *url.URL) string {
	host := u.Hostname()
	if host == "localhost" {
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort("127.0.0.1", port)
		} else {
			u.Host = "127.0.0.1"
		}
	}
	if decoded, err := url.PathUnescape(u.EscapedPath()); err == nil {
		u.Path = decoded
		u.RawPath = ""
	}
	return u.String()
}
