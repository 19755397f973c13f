// Package publish defines the ingest-event publisher contract. Events are
// emitted after each successful artifact row write so downstream
// knowledge-base builders can react without polling the metadata store.
package publish

import (
	"context"
	"time"

	"github.com/kbforge/harvester/internal/classify"
)

// Event describes one ingested artifact.
type Event struct {
	ID        string        `json:"id"`
	JobID     string        `json:"job_id"`
	ElementID string        `json:"element_id"`
	URL       string        `json:"url"`
	Type      classify.Kind `json:"type"`
	Checksum  string        `json:"checksum"`
	BlobURI   string        `json:"blob_uri"`
	At        time.Time     `json:"at"`
}

// Publisher pushes ingest events to Pub/Sub (or similar). Publish returns
// the broker message ID.
type Publisher interface {
	Publish(ctx context.Context, event Event) (string, error)
	Close() error
}

// NoOp discards all events.
type NoOp struct{}

// Publish for NoOp does nothing and returns a dummy ID.
func (NoOp) Publish(_ context.Context, _ Event) (string, error) {
	return "noop", nil
}

// Close for NoOp does nothing.
func (NoOp) Close() error { return nil }
