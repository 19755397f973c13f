// Package frontier owns the crawl policy: seed enqueue, depth tracking,
// follow gating, and the visited-URL set. Every frontier is scoped to one
// crawl job; there is no cross-job shared state.
package frontier

import (
	"context"
	"errors"
)

// Item is one not-yet-fetched URL queued for the current job. Items carry no
// lineage: a page reached through a frontier link gets a null parent, only
// embedded assets record the page that embedded them.
type Item struct {
	URL   string
	Depth int
}

// Policy captures the per-job traversal bounds.
type Policy struct {
	MaxDepth int
	Follow   bool
}

// ErrFull is returned when a bounded frontier rejects an enqueue.
var ErrFull = errors.New("frontier queue is full")

// Frontier provides concurrent-safe enqueue/dequeue over the crawl queue.
//
// Enqueue performs the visited check-and-set atomically, so two workers
// discovering the same URL enqueue it once. Dequeue blocks until an item is
// available and returns ok=false once the queue has drained: every enqueued
// item has been dequeued and acknowledged via Done.
type Frontier interface {
	Enqueue(ctx context.Context, item Item) error
	Dequeue(ctx context.Context) (Item, bool, error)
	// Done acknowledges that a dequeued item has finished processing.
	Done()
	IsVisited(ctx context.Context, rawURL string) (bool, error)
	MarkVisited(ctx context.Context, rawURL string) error
	Close() error
}

// Admit applies the depth/follow gate shared by all implementations. The
// seed (depth 0) is always admitted; deeper items require follow mode and
// must not exceed the depth bound.
func (p Policy) Admit(depth int) bool {
	if depth == 0 {
		return true
	}
	if !p.Follow {
		return false
	}
	return depth <= p.MaxDepth
}
