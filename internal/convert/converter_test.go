package convert

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/harvester/internal/classify"
)

func TestNewHTTPConverterRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPConverter(HTTPConfig{})
	assert.Error(t, err)
}

func TestHTTPConverterConvert(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/markdown", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.7 input"), body)

		_, _ = w.Write([]byte("# Converted\n\ncontent"))
	}))
	defer srv.Close()

	c, err := NewHTTPConverter(HTTPConfig{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	out, err := c.Convert(context.Background(), []byte("%PDF-1.7 input"), classify.KindPDF)
	require.NoError(t, err)
	assert.Equal(t, []byte("# Converted\n\ncontent"), out)
}

func TestHTTPConverterRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewHTTPConverter(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.Convert(context.Background(), []byte("data"), classify.KindPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPConverterRejectsEmptyOutput(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewHTTPConverter(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.Convert(context.Background(), []byte("data"), classify.KindImage)
	assert.Error(t, err)
}
