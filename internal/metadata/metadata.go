// Package metadata defines the artifact record and the repository contract
// over the relational store.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/kbforge/harvester/internal/classify"
	"github.com/kbforge/harvester/internal/retry"
)

// ErrNotFound is returned by updates targeting a missing row.
var ErrNotFound = errors.New("artifact record not found")

// ArtifactRecord is one distinct piece of content discovered during a job.
// ProcessedContentPath and ParentID use the empty string as SQL null.
type ArtifactRecord struct {
	ElementID            string        `json:"element_id"`
	JobID                string        `json:"job_id"`
	URL                  string        `json:"url"`
	Type                 classify.Kind `json:"type"`
	Depth                int           `json:"depth"`
	RawContentPath       string        `json:"raw_content_path"`
	ProcessedContentPath string        `json:"processed_content_path,omitempty"`
	Checksum             string        `json:"checksum"`
	ParentID             string        `json:"parent_id,omitempty"`
	FetchedAt            time.Time     `json:"fetched_at"`
}

// Repository is the contract over the relational metadata store.
type Repository interface {
	// Upsert writes a record as a single atomic row write keyed by
	// element_id, so retries never leave partial rows.
	Upsert(ctx context.Context, record ArtifactRecord) error
	Get(ctx context.Context, elementID string) (ArtifactRecord, bool, error)
	Exists(ctx context.Context, elementID string) (bool, error)
	// SetProcessedPath records the conversion output pointer. The raw path
	// always exists by the time this is called.
	SetProcessedPath(ctx context.Context, elementID, processedPath string) error
	ListByJob(ctx context.Context, jobID string) ([]ArtifactRecord, error)
	ListChildren(ctx context.Context, parentID string) ([]ArtifactRecord, error)
	Close() error
}

// retrying wraps Repository writes with the gateway retry policy. Reads are
// passed through; a transient read failure is handled by the caller's
// idempotent re-ingestion.
type retrying struct {
	Repository
	policy *retry.Policy
}

// WithRetry decorates a repository with bounded write retries.
func WithRetry(inner Repository, policy *retry.Policy) Repository {
	if policy == nil {
		policy = retry.NewPolicy()
	}
	return &retrying{Repository: inner, policy: policy}
}

func (r *retrying) Upsert(ctx context.Context, record ArtifactRecord) error {
	return r.policy.Do(ctx, func() error {
		return r.Repository.Upsert(ctx, record)
	})
}

func (r *retrying) SetProcessedPath(ctx context.Context, elementID, processedPath string) error {
	return r.policy.Do(ctx, func() error {
		return r.Repository.SetProcessedPath(ctx, elementID, processedPath)
	})
}
