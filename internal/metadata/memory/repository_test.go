package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/harvester/internal/classify"
	"github.com/kbforge/harvester/internal/metadata"
)

func record(elementID, jobID, parentID string) metadata.ArtifactRecord {
	return metadata.ArtifactRecord{
		ElementID:      elementID,
		JobID:          jobID,
		URL:            "https://example.com/" + elementID,
		Type:           classify.KindHTML,
		RawContentPath: "memory://" + jobID + "/raw/" + elementID,
		Checksum:       "sum-" + elementID,
		ParentID:       parentID,
		FetchedAt:      time.Now().UTC(),
	}
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()

	rec := record("e1", "job1", "")
	require.NoError(t, repo.Upsert(ctx, rec))

	got, found, err := repo.Get(ctx, "e1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)

	exists, err := repo.Exists(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()

	rec := record("e1", "job1", "")
	require.NoError(t, repo.Upsert(ctx, rec))
	require.NoError(t, repo.Upsert(ctx, rec))

	rows, err := repo.ListByJob(ctx, "job1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepositorySetProcessedPath(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, record("e1", "job1", "")))
	require.NoError(t, repo.SetProcessedPath(ctx, "e1", "memory://job1/processed/e1.md"))

	got, found, err := repo.Get(ctx, "e1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "memory://job1/processed/e1.md", got.ProcessedContentPath)
}

func TestRepositorySetProcessedPathMissingRow(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	err := repo.SetProcessedPath(context.Background(), "missing", "path")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestRepositoryListByJobInsertionOrder(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, record("e1", "job1", "")))
	require.NoError(t, repo.Upsert(ctx, record("e2", "job1", "e1")))
	require.NoError(t, repo.Upsert(ctx, record("other", "job2", "")))
	require.NoError(t, repo.Upsert(ctx, record("e3", "job1", "e1")))

	rows, err := repo.ListByJob(ctx, "job1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "e1", rows[0].ElementID)
	assert.Equal(t, "e2", rows[1].ElementID)
	assert.Equal(t, "e3", rows[2].ElementID)
}

func TestRepositoryListChildren(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, record("page", "job1", "")))
	require.NoError(t, repo.Upsert(ctx, record("pdf", "job1", "page")))
	require.NoError(t, repo.Upsert(ctx, record("img", "job1", "page")))

	children, err := repo.ListChildren(ctx, "page")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "pdf", children[0].ElementID)
	assert.Equal(t, "img", children[1].ElementID)

	none, err := repo.ListChildren(ctx, "img")
	require.NoError(t, err)
	assert.Empty(t, none)
}
