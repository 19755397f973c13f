package frontier

import (
	"context"
	"sync"
)

// Memory is the default in-process frontier: a bounded FIFO queue plus a
// visited set guarded by one mutex. FIFO order makes the traversal
// breadth-first by depth.
type Memory struct {
	policy   Policy
	capacity int

	mu      sync.Mutex
	queue   []Item
	visited map[string]struct{}
	pending int
	closed  bool
	wait    chan struct{}
}

var _ Frontier = (*Memory)(nil)

// NewMemory constructs a Memory frontier. capacity bounds the number of
// queued (not yet dequeued) items.
func NewMemory(policy Policy, capacity int) *Memory {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Memory{
		policy:   policy,
		capacity: capacity,
		visited:  make(map[string]struct{}),
		wait:     make(chan struct{}),
	}
}

// Enqueue admits an item per the depth/follow policy and the visited set.
// Already-visited URLs and policy-rejected depths are silent no-ops;
// malformed URLs and a full queue are reported to the caller, who records
// the drop and continues.
func (m *Memory) Enqueue(_ context.Context, item Item) error {
	normalized, err := NormalizeURL(item.URL)
	if err != nil {
		return err
	}
	if !m.policy.Admit(item.Depth) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if _, seen := m.visited[normalized]; seen {
		return nil
	}
	if len(m.queue) >= m.capacity {
		return ErrFull
	}
	m.visited[normalized] = struct{}{}
	item.URL = normalized
	m.queue = append(m.queue, item)
	m.pending++
	m.signalLocked()
	return nil
}

// Dequeue pops the next item in FIFO order. It blocks until an item is
// available, and returns ok=false when the frontier has drained or been
// closed.
func (m *Memory) Dequeue(ctx context.Context) (Item, bool, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			item := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return item, true, nil
		}
		if m.pending == 0 || m.closed {
			m.mu.Unlock()
			return Item{}, false, nil
		}
		wait := m.wait
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, false, ctx.Err()
		case <-wait:
		}
	}
}

// Done acknowledges completion of a dequeued item. When the last in-flight
// item completes with nothing queued, blocked Dequeue calls observe the
// drain and return.
func (m *Memory) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending > 0 {
		m.pending--
	}
	m.signalLocked()
}

// IsVisited reports whether the URL has already been admitted.
func (m *Memory) IsVisited(_ context.Context, rawURL string) (bool, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, seen := m.visited[normalized]
	return seen, nil
}

// MarkVisited records a URL without enqueuing it.
func (m *Memory) MarkVisited(_ context.Context, rawURL string) error {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visited[normalized] = struct{}{}
	return nil
}

// Len reports the number of queued items.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close stops further enqueues and wakes blocked consumers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.signalLocked()
	return nil
}

// signalLocked wakes all blocked Dequeue calls. Callers hold m.mu.
func (m *Memory) signalLocked() {
	close(m.wait)
	m.wait = make(chan struct{})
}
