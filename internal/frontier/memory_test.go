package frontier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFIFOOrder(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/a", Depth: 0}))
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/b", Depth: 1}))
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/c", Depth: 1}))

	for _, want := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"} {
		item, ok, err := fr.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, item.URL)
		fr.Done()
	}
}

func TestMemoryVisitedSetDeduplicates(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/page", Depth: 0}))
	// Equivalent URL after normalization.
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://EXAMPLE.com:443/page#frag", Depth: 1}))
	assert.Equal(t, 1, fr.Len())

	seen, err := fr.IsVisited(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryPolicyRejectsDeepAndNoFollow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	bounded := NewMemory(Policy{MaxDepth: 1, Follow: true}, 10)
	require.NoError(t, bounded.Enqueue(ctx, Item{URL: "https://example.com/d1", Depth: 1}))
	require.NoError(t, bounded.Enqueue(ctx, Item{URL: "https://example.com/d2", Depth: 2}))
	assert.Equal(t, 1, bounded.Len())

	noFollow := NewMemory(Policy{MaxDepth: 5, Follow: false}, 10)
	require.NoError(t, noFollow.Enqueue(ctx, Item{URL: "https://example.com/seed", Depth: 0}))
	require.NoError(t, noFollow.Enqueue(ctx, Item{URL: "https://example.com/link", Depth: 1}))
	assert.Equal(t, 1, noFollow.Len())
}

func TestMemoryCapacity(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 2)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/1", Depth: 0}))
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/2", Depth: 1}))
	err := fr.Enqueue(ctx, Item{URL: "https://example.com/3", Depth: 1})
	assert.ErrorIs(t, err, ErrFull)
}

func TestMemoryEnqueueRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	err := fr.Enqueue(context.Background(), Item{URL: "mailto:x@example.com", Depth: 1})
	assert.Error(t, err)
}

func TestMemoryDequeueReportsDrain(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/only", Depth: 0}))

	item, ok, err := fr.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/only", item.URL)

	// A second consumer blocks while the item is in flight, then observes
	// the drain once it is acknowledged.
	result := make(chan bool, 1)
	go func() {
		_, ok, _ := fr.Dequeue(ctx)
		result <- ok
	}()

	select {
	case <-result:
		t.Fatal("dequeue returned before the in-flight item was acknowledged")
	case <-time.After(50 * time.Millisecond):
	}

	fr.Done()
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe the drain")
	}
}

func TestMemoryDequeueWakesOnNewWork(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/seed", Depth: 0}))
	_, ok, err := fr.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	got := make(chan Item, 1)
	go func() {
		item, ok, _ := fr.Dequeue(ctx)
		if ok {
			got <- item
		}
	}()

	// The worker processing the seed discovers a link.
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/next", Depth: 1}))
	fr.Done()

	select {
	case item := <-got:
		assert.Equal(t, "https://example.com/next", item.URL)
	case <-time.After(time.Second):
		t.Fatal("blocked dequeue was not woken by new work")
	}
}

func TestMemoryDequeueHonorsContext(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/seed", Depth: 0}))
	_, ok, err := fr.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := fr.Dequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not honor cancellation")
	}
}

func TestMemoryMarkVisitedSuppressesEnqueue(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.MarkVisited(ctx, "https://example.com/asset.pdf"))
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/asset.pdf", Depth: 1}))
	assert.Equal(t, 0, fr.Len())
}

func TestMemoryCloseStopsConsumption(t *testing.T) {
	t.Parallel()

	fr := NewMemory(Policy{MaxDepth: 3, Follow: true}, 10)
	ctx := context.Background()

	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/seed", Depth: 0}))
	_, ok, err := fr.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fr.Close())
	_, ok, err = fr.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Enqueue after close is a silent no-op.
	require.NoError(t, fr.Enqueue(ctx, Item{URL: "https://example.com/late", Depth: 1}))
	assert.Equal(t, 0, fr.Len())
}

func TestPolicyAdmit(t *testing.T) {
	t.Parallel()

	p := Policy{MaxDepth: 2, Follow: true}
	assert.True(t, p.Admit(0))
	assert.True(t, p.Admit(1))
	assert.True(t, p.Admit(2))
	assert.False(t, p.Admit(3))

	noFollow := Policy{MaxDepth: 2, Follow: false}
	assert.True(t, noFollow.Admit(0))
	assert.False(t, noFollow.Admit(1))
}
