package embedcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNeedsRefresh_FalseWhenNotEmbeddable(t *testing.T) {
	it := &model.Item{Embeddable: false}
	assert.False(t, NeedsRefresh(it))
}

func TestNeedsRefresh_TrueWhenHashMissing(t *testing.T) {
	it := &model.Item{Embeddable: true, Metadata: "x"}
	assert.True(t, NeedsRefresh(it))
}

func TestNeedsRefresh_FalseWhenHashMatchesCurrentContent(t *testing.T) {
	it := &model.Item{Embeddable: true, Metadata: "x", Description: "y"}
	it.ContentHash = ContentHash(it)
	assert.False(t, NeedsRefresh(it))
}

func TestNeedsRefresh_TrueWhenContentChangedSinceHash(t *testing.T) {
	it := &model.Item{Embeddable: true, Metadata: "x"}
	it.ContentHash = ContentHash(it)
	it.Description = "changed"
	assert.True(t, NeedsRefresh(it))
}

func TestSyncOnWrite_ComputesAndPersistsEmbeddingWhenStale(t *testing.T) {
	// Given: a freshly inserted embeddable item with no embedding yet
	s := openTestStore(t)
	idx := store.NewVectorIndex(stubDimensions)
	r := New(s, idx, HashEmbedder{})

	it, err := s.Insert(context.Background(), &model.Item{URL: "u", Metadata: "m", Embeddable: true})
	require.NoError(t, err)

	// When: syncing on write
	err = r.SyncOnWrite(context.Background(), it)

	// Then: the item now carries an embedding and a matching content hash
	require.NoError(t, err)
	assert.NotNil(t, it.Embedding)
	assert.Equal(t, ContentHash(it), it.ContentHash)

	reloaded, err := s.Get(context.Background(), it.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.Embedding)
}

func TestSyncOnWrite_ClearsEmbeddingWhenEmbeddableFlipsFalse(t *testing.T) {
	s := openTestStore(t)
	idx := store.NewVectorIndex(stubDimensions)
	r := New(s, idx, HashEmbedder{})

	it, err := s.Insert(context.Background(), &model.Item{URL: "u", Metadata: "m", Embeddable: true})
	require.NoError(t, err)
	require.NoError(t, r.SyncOnWrite(context.Background(), it))

	it.Embeddable = false
	require.NoError(t, r.SyncOnWrite(context.Background(), it))

	assert.Nil(t, it.Embedding)
	assert.Nil(t, it.ContentHash)
}

func TestBackfill_DryRunCountsButDoesNotPersist(t *testing.T) {
	s := openTestStore(t)
	idx := store.NewVectorIndex(stubDimensions)
	r := New(s, idx, HashEmbedder{})

	it, err := s.Insert(context.Background(), &model.Item{URL: "u", Metadata: "m", Embeddable: true})
	require.NoError(t, err)

	result, err := r.Backfill(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stale)
	assert.Equal(t, 0, result.Refreshed)

	reloaded, err := s.Get(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Embedding)
}

func TestBackfill_RefreshesStaleEmbeddableItems(t *testing.T) {
	s := openTestStore(t)
	idx := store.NewVectorIndex(stubDimensions)
	r := New(s, idx, HashEmbedder{})

	_, err := s.Insert(context.Background(), &model.Item{URL: "u1", Metadata: "m1", Embeddable: true})
	require.NoError(t, err)
	_, err = s.Insert(context.Background(), &model.Item{URL: "u2", Metadata: "m2", Embeddable: false})
	require.NoError(t, err)

	result, err := r.Backfill(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Refreshed)
}

func TestCachedEmbedder_ReturnsSameVectorOnRepeatedCall(t *testing.T) {
	c := NewCachedEmbedder(HashEmbedder{}, 10)
	v1, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestHashEmbedder_IsDeterministicAndNormalized(t *testing.T) {
	v1, err := HashEmbedder{}.Embed(context.Background(), "same text")
	require.NoError(t, err)
	v2, err := HashEmbedder{}.Embed(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	var norm float64
	for _, f := range v1 {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, norm, 0.01)
}
