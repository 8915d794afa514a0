package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func openSemanticTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustInsertWithEmbedding(t *testing.T, s *store.Store, url string, tags string, vec []float32) *model.Item {
	t.Helper()
	it := &model.Item{
		URL:        url,
		Tags:       tags,
		Embeddable: true,
		Embedding:  store.EncodeEmbedding(vec),
	}
	saved, err := s.Insert(context.Background(), it)
	require.NoError(t, err)
	return saved
}

func TestSemantic_ReturnsClosestItemFirst(t *testing.T) {
	// Given a store with two embedded items and a vector index over them
	s := openSemanticTestStore(t)
	near := mustInsertWithEmbedding(t, s, "https://a.example", ",python,", []float32{1, 0, 0})
	far := mustInsertWithEmbedding(t, s, "https://b.example", ",python,", []float32{0, 1, 0})

	idx := store.NewVectorIndex(3)
	idx.Upsert(uint64(near.ID), []float32{1, 0, 0})
	idx.Upsert(uint64(far.ID), []float32{0, 1, 0})

	embedder := fakeEmbedder{vec: []float32{1, 0, 0}}

	// When searching semantically for a vector close to "near"
	items, err := Semantic(context.Background(), s, idx, embedder, "anything", TagArgs{}, 2)

	// Then the closer item is returned first
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, near.ID, items[0].ID)
}

func TestSemantic_TagPredicatePreFiltersCandidates(t *testing.T) {
	// Given two embedded items, only one tagged "python"
	s := openSemanticTestStore(t)
	py := mustInsertWithEmbedding(t, s, "https://a.example", ",python,", []float32{1, 0, 0})
	gol := mustInsertWithEmbedding(t, s, "https://b.example", ",golang,", []float32{1, 0, 0})

	idx := store.NewVectorIndex(3)
	idx.Upsert(uint64(py.ID), []float32{1, 0, 0})
	idx.Upsert(uint64(gol.ID), []float32{1, 0, 0})

	embedder := fakeEmbedder{vec: []float32{1, 0, 0}}

	// When searching with an "all=[python]" tag predicate
	items, err := Semantic(context.Background(), s, idx, embedder, "q", TagArgs{All: []string{"python"}}, 5)

	// Then only the python-tagged item is returned, even though the golang
	// item is indexed with an identical vector
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, py.ID, items[0].ID)
}

func TestSemantic_EmbedderErrorIsWrapped(t *testing.T) {
	// Given an embedder that always fails
	s := openSemanticTestStore(t)
	idx := store.NewVectorIndex(3)
	embedder := fakeEmbedder{err: errors.New("service unreachable")}

	// When searching semantically
	_, err := Semantic(context.Background(), s, idx, embedder, "q", TagArgs{}, 5)

	// Then the error is wrapped with CodeEmbedderUnavailable
	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeEmbedderUnavailable, code)
}

func TestSemantic_NoTagPredicateSearchesAllIndexedItems(t *testing.T) {
	// Given a store with one embedded item and no tag constraint
	s := openSemanticTestStore(t)
	it := mustInsertWithEmbedding(t, s, "https://a.example", "", []float32{0, 0, 1})
	idx := store.NewVectorIndex(3)
	idx.Upsert(uint64(it.ID), []float32{0, 0, 1})

	embedder := fakeEmbedder{vec: []float32{0, 0, 1}}

	// When searching semantically with an empty TagArgs
	items, err := Semantic(context.Background(), s, idx, embedder, "q", TagArgs{}, 5)

	// Then the item is found without any pre-filtering query
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)
}
