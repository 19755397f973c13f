// Package storage defines the object store gateway used to persist raw and
// processed artifact content. Implementations live in the gcs and memory
// subpackages.
package storage

import (
	"context"
	"fmt"

	"github.com/kbforge/harvester/internal/retry"
)

// BlobStore is the contract over the object store.
//
// Keys follow the job-scoped layout produced by RawKey/ProcessedKey. URI
// must be a pure function of the key so callers can reference an object that
// an earlier checksum hit already uploaded.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	URI(key string) string
}

// RawKey returns the content-addressed key for raw bytes. Keying by checksum
// rather than URL means a second URL with identical bytes skips the upload.
func RawKey(jobID, checksum, ext string) string {
	return fmt.Sprintf("%s/raw/%s%s", jobID, checksum, ext)
}

// ProcessedKey returns the key for an artifact's normalized markdown output.
func ProcessedKey(jobID, elementID string) string {
	return fmt.Sprintf("%s/processed/%s.md", jobID, elementID)
}

// retrying wraps a BlobStore with bounded exponential backoff. Exhaustion
// surfaces the last error to the caller, which records an ingestion failure
// for that single artifact.
type retrying struct {
	inner  BlobStore
	policy *retry.Policy
}

// WithRetry decorates a store with the gateway retry policy.
func WithRetry(inner BlobStore, policy *retry.Policy) BlobStore {
	if policy == nil {
		policy = retry.NewPolicy()
	}
	return &retrying{inner: inner, policy: policy}
}

func (r *retrying) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	var uri string
	err := r.policy.Do(ctx, func() error {
		var putErr error
		uri, putErr = r.inner.Put(ctx, key, contentType, data)
		return putErr
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return uri, nil
}

func (r *retrying) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.policy.Do(ctx, func() error {
		var getErr error
		data, getErr = r.inner.Get(ctx, key)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (r *retrying) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.policy.Do(ctx, func() error {
		var existsErr error
		exists, existsErr = r.inner.Exists(ctx, key)
		return existsErr
	})
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return exists, nil
}

func (r *retrying) URI(key string) string {
	return r.inner.URI(key)
}
