//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// setupTestStorage creates a storage instance on a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "ideas-test-" + uuid.New().String(),
		Dimension:  testDimension,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = storage.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	t.Cleanup(func() {
		_ = storage.client.DeleteCollection(context.Background(), storage.collection)
		storage.Close()
	})
	return storage
}

func vector(seed float32) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		v[i] = seed + float32(i)*0.01
	}
	return v
}

func TestIdeaRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	idea := &Idea{
		Title:     "Solar kites",
		Document:  FormatIdea("Solar kites", "Kites that harvest wind."),
		Embedding: vector(0.1),
	}
	require.NoError(t, storage.UpsertIdea(ctx, idea))

	got, err := storage.GetIdea(ctx, "Solar kites")
	require.NoError(t, err)
	assert.Equal(t, idea.Title, got.Title)
	assert.Equal(t, idea.Document, got.Document)
	assert.Len(t, got.Embedding, testDimension)

	require.NoError(t, storage.DeleteIdea(ctx, "Solar kites"))
	_, err = storage.GetIdea(ctx, "Solar kites")
	assert.ErrorIs(t, err, ErrIdeaNotFound)
}

func TestGetAllPagesAndLimits(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 130; i++ {
		title := uuid.New().String()
		require.NoError(t, storage.UpsertIdea(ctx, &Idea{
			Title:     title,
			Document:  FormatIdea(title, "body"),
			Embedding: vector(float32(i)),
		}))
	}

	all, err := storage.GetAll(ctx, 500)
	require.NoError(t, err)
	require.NoError(t, all.Validate())
	assert.Equal(t, 130, all.Len())

	seen := make(map[string]bool)
	for _, id := range all.IDs {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	limited, err := storage.GetAll(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, limited.Len())

	// points_count in collection info is refreshed asynchronously.
	assert.Eventually(t, func() bool {
		n, err := storage.Count(ctx)
		return err == nil && n == 130
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSearchSimilar(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertIdea(ctx, &Idea{Title: "near", Document: "near", Embedding: vector(1)}))
	far := vector(1)
	for i := range far {
		far[i] = -far[i]
	}
	require.NoError(t, storage.UpsertIdea(ctx, &Idea{Title: "far", Document: "far", Embedding: far}))

	titles, err := storage.SearchSimilar(ctx, vector(1), 2)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "near", titles[0])

	_, err = storage.SearchSimilar(ctx, []float32{1}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
