// Package memory provides an in-memory metadata repository for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kbforge/harvester/internal/metadata"
)

// Repository keeps artifact rows in a map keyed by element_id.
type Repository struct {
	mu      sync.RWMutex
	rows    map[string]metadata.ArtifactRecord
	ordinal map[string]int // insertion order, for stable listings
	nextOrd int
}

var _ metadata.Repository = (*Repository)(nil)

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		rows:    make(map[string]metadata.ArtifactRecord),
		ordinal: make(map[string]int),
	}
}

// Upsert inserts or replaces the row for record.ElementID.
func (r *Repository) Upsert(_ context.Context, record metadata.ArtifactRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[record.ElementID]; !ok {
		r.ordinal[record.ElementID] = r.nextOrd
		r.nextOrd++
	}
	r.rows[record.ElementID] = record
	return nil
}

// Get returns the row and whether it exists.
func (r *Repository) Get(_ context.Context, elementID string) (metadata.ArtifactRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.rows[elementID]
	return record, ok, nil
}

// Exists reports whether a row exists for the element id.
func (r *Repository) Exists(_ context.Context, elementID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rows[elementID]
	return ok, nil
}

// SetProcessedPath updates the processed-content pointer on an existing row.
func (r *Repository) SetProcessedPath(_ context.Context, elementID, processedPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.rows[elementID]
	if !ok {
		return metadata.ErrNotFound
	}
	record.ProcessedContentPath = processedPath
	r.rows[elementID] = record
	return nil
}

// ListByJob returns all rows for a job in insertion order.
func (r *Repository) ListByJob(_ context.Context, jobID string) ([]metadata.ArtifactRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []metadata.ArtifactRecord
	for _, record := range r.rows {
		if record.JobID == jobID {
			out = append(out, record)
		}
	}
	r.sortByInsertion(out)
	return out, nil
}

// ListChildren returns all rows whose parent_id matches.
func (r *Repository) ListChildren(_ context.Context, parentID string) ([]metadata.ArtifactRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []metadata.ArtifactRecord
	for _, record := range r.rows {
		if record.ParentID == parentID {
			out = append(out, record)
		}
	}
	r.sortByInsertion(out)
	return out, nil
}

// Close is a no-op for the in-memory repository.
func (r *Repository) Close() error { return nil }

func (r *Repository) sortByInsertion(records []metadata.ArtifactRecord) {
	sort.Slice(records, func(i, j int) bool {
		return r.ordinal[records[i].ElementID] < r.ordinal[records[j].ElementID]
	})
}
