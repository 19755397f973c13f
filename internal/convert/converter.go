// Package convert implements the asynchronous raw-to-markdown conversion
// stage for PDF and image artifacts.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbforge/harvester/internal/classify"
)

// Converter turns raw PDF/image bytes into normalized markdown. The real
// implementation is a remote document-conversion service treated as a slow,
// occasionally-failing black box.
type Converter interface {
	Convert(ctx context.Context, data []byte, kind classify.Kind) ([]byte, error)
}

// HTTPConfig controls the conversion service client.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPConverter posts raw bytes to the conversion service and returns the
// markdown body.
type HTTPConverter struct {
	cfg    HTTPConfig
	client *http.Client
}

var _ Converter = (*HTTPConverter)(nil)

// NewHTTPConverter builds an HTTPConverter.
func NewHTTPConverter(cfg HTTPConfig) (*HTTPConverter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("convert.endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPConverter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Convert sends the raw bytes and returns the service's markdown output.
func (c *HTTPConverter) Convert(ctx context.Context, data []byte, kind classify.Kind) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", classify.ContentType(kind, ""))
	req.Header.Set("Accept", "text/markdown")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call conversion service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("conversion service returned %d: %s", resp.StatusCode, string(body))
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read conversion output: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("conversion service returned empty output")
	}
	return out, nil
}
