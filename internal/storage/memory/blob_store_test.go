package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	uri, err := store.Put(ctx, "job/raw/abc.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "memory://job/raw/abc.pdf", uri)
	assert.Equal(t, uri, store.URI("job/raw/abc.pdf"))

	data, err := store.Get(ctx, "job/raw/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)

	exists, err := store.Exists(ctx, "job/raw/abc.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, store.Len())
}

func TestBlobStoreMissingKey(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.Error(t, err)

	exists, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlobStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	original := []byte("immutable")
	_, err := store.Put(ctx, "key", "", original)
	require.NoError(t, err)
	original[0] = 'X'

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), data)
}
