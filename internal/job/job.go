// Package job defines the CrawlJob value that scopes one bounded crawl run.
package job

import (
	"fmt"
	"net/url"
	"time"
)

// IDLayout is the time layout used to derive job identifiers.
const IDLayout = "20060102_150405"

// Job identifies one crawl run. It is immutable after creation and scopes
// every storage key and metadata row produced during the run.
type Job struct {
	ID        string
	SeedURL   string
	MaxDepth  int
	Follow    bool
	StartedAt time.Time
}

// New validates the seed URL and builds a Job whose ID is derived from the
// provided start time. Validation failures here are the only fatal
// configuration errors of a crawl.
func New(seedURL string, maxDepth int, follow bool, startedAt time.Time) (Job, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return Job{}, fmt.Errorf("parse seed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Job{}, fmt.Errorf("seed url %q must use http or https", seedURL)
	}
	if u.Host == "" {
		return Job{}, fmt.Errorf("seed url %q has no host", seedURL)
	}
	if maxDepth < 0 {
		return Job{}, fmt.Errorf("max depth must be >= 0, got %d", maxDepth)
	}
	started := startedAt.UTC()
	return Job{
		ID:        started.Format(IDLayout),
		SeedURL:   u.String(),
		MaxDepth:  maxDepth,
		Follow:    follow,
		StartedAt: started,
	}, nil
}
