// Package fetch defines the fetch contract and the Colly-backed transport.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Request captures everything needed to fetch one URL for a job.
type Request struct {
	JobID string
	URL   string
	Depth int
}

// Response is the result of a single fetch. Depth carries the frontier
// context through the ingest pipeline.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	Duration    time.Duration
	Depth       int
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}
