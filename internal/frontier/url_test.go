package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"strips default http port", "http://example.com:80/page", "http://example.com/page"},
		{"strips default https port", "https://example.com:443/page", "https://example.com/page"},
		{"keeps explicit port", "http://example.com:8080/page", "http://example.com:8080/page"},
		{"drops fragment", "https://example.com/page#section-2", "https://example.com/page"},
		{"sorts query params", "https://example.com/s?b=2&a=1", "https://example.com/s?a=1&b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	t.Parallel()

	a, err := NormalizeURL("https://Example.com:443/page?b=2&a=1#top")
	require.NoError(t, err)
	b, err := NormalizeURL("https://example.com/page?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeURLRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"mailto:someone@example.com",
		"ftp://example.com/file",
		"javascript:void(0)",
		"/relative/only",
		"",
	} {
		_, err := NormalizeURL(in)
		assert.Error(t, err, "input %q", in)
	}
}
