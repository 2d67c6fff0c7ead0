package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureAbsoluteURL(t *testing.T) {
	const base = "https://storage.example.org/bucket"

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "absolute URL passes through",
			raw:  "https://cdn.example.org/photos/a.jpg",
			want: "https://cdn.example.org/photos/a.jpg",
			ok:   true,
		},
		{
			name: "localhost host rewritten to loopback",
			raw:  "http://localhost:9000/bucket/photos/a.jpg",
			want: "http://127.0.0.1:9000/bucket/photos/a.jpg",
			ok:   true,
		},
		{
			name: "localhost without port",
			raw:  "http://localhost/photos/a.jpg",
			want: "http://127.0.0.1/photos/a.jpg",
			ok:   true,
		},
		{
			name: "double-encoded absolute URL",
			raw:  "https%3A%2F%2Fcdn.example.org%2Fphotos%2Fa.jpg",
			want: "https://cdn.example.org/photos/a.jpg",
			ok:   true,
		},
		{
			name: "relative path keeps the bucket path of the base",
			raw:  "/photos/a.jpg",
			want: "https://storage.example.org/bucket/photos/a.jpg",
			ok:   true,
		},
		{
			name: "relative path without leading slash",
			raw:  "photos/a.jpg",
			want: "https://storage.example.org/bucket/photos/a.jpg",
			ok:   true,
		},
		{
			name: "encoded path segment decoded",
			raw:  "https://cdn.example.org/photos/site%20plan.jpg",
			want: "https://cdn.example.org/photos/site plan.jpg",
			ok:   true,
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EnsureAbsoluteURL(tt.raw, base)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureAbsoluteURLWithoutBase(t *testing.T) {
	_, ok := EnsureAbsoluteURL("/photos/a.jpg", "")
	assert.False(t, ok)
}

func TestPublicURLFromKey(t *testing.T) {
	assert.Equal(t, "https://storage.example.org/bucket/photos/a.jpg",
		PublicURLFromKey("https://storage.example.org/bucket", "photos/a.jpg"))
	assert.Equal(t, "https://storage.example.org/bucket/photos/a.jpg",
		PublicURLFromKey("https://storage.example.org/bucket/", "/photos/a.jpg"))
	assert.Equal(t, "photos/a.jpg", PublicURLFromKey("", "photos/a.jpg"))
	assert.Equal(t, "", PublicURLFromKey("base", "  "))
}
