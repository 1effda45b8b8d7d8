package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieverJoinsRankedTexts(t *testing.T) {
	repo := newMemoryRepo()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0.8, 0.2},
		"gamma": {0, 1},
		"delta": {-1, 0},
		"q":     {1, 0},
	}}
	store := newTestStore(t, repo, embedder)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		[]string{"alpha", "beta", "gamma", "delta"},
		[]string{"1", "2", "3", "4"},
	))

	got, err := NewRetriever(store).Retrieve(ctx, "q")
	require.NoError(t, err)

	// DefaultTopK documents, nearest first, joined with blank lines.
	assert.Equal(t, "alpha\n\nbeta\n\ngamma", got)
}

func TestRetrieverEmptyStoreSentinel(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1}}}
	store := newTestStore(t, newMemoryRepo(), embedder)

	got, err := NewRetriever(store).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, NoContextSentinel, got)
}

func TestRetrieverNilResultSet(t *testing.T) {
	repo := newMemoryRepo()
	repo.nilSearch = true
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1}}}
	store := newTestStore(t, repo, embedder)

	_, err := NewRetriever(store).Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRetrieverPropagatesStoreErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.failSearch = true
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1}}}
	store := newTestStore(t, repo, embedder)

	_, err := NewRetriever(store).Retrieve(context.Background(), "q")
	assert.Error(t, err)
}
