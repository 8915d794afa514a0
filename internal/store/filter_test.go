package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkmr/bkmr/internal/model"
)

func TestList_TextPredicateWithTagFilter(t *testing.T) {
	// Given: A(python asyncio) and B(rust tokio), A tagged python+asyncio,
	// B tagged rust+async
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Insert(ctx, &model.Item{URL: "https://a", Metadata: "python asyncio", Tags: ",python,asyncio,"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &model.Item{URL: "https://b", Metadata: "rust tokio", Tags: ",rust,async,"})
	require.NoError(t, err)

	// When: querying text "async*" with tags_all=[python]
	items, err := s.List(ctx, Filter{
		FTSQuery: "metadata:async*",
		Tags:     TagPredicate{All: []string{"python"}},
	})
	require.NoError(t, err)

	// Then: only A matches
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)
}

func TestList_EmptyTextPredicateMatchesByTagsOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &model.Item{URL: "https://a", Tags: ",python,"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &model.Item{URL: "https://b", Tags: ",rust,"})
	require.NoError(t, err)

	items, err := s.List(ctx, Filter{Tags: TagPredicate{Any: []string{"python"}}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://a", items[0].URL)
}

func TestList_LimitZeroReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &model.Item{URL: "https://a"})
	require.NoError(t, err)

	items, err := s.List(ctx, Filter{HasLimit: true, Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestList_ColumnPrefixTermMatchesPrefixToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &model.Item{URL: "https://a", Metadata: "foobar baz"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &model.Item{URL: "https://b", Metadata: "quux baz"})
	require.NoError(t, err)

	items, err := s.List(ctx, Filter{FTSQuery: `metadata:foo*`})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://a", items[0].URL)
}

func TestList_BadQueryWrapsFTSError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.List(ctx, Filter{FTSQuery: `metadata: AND AND (((`})
	require.Error(t, err)
}

func TestList_TagsAllVsTagsAnyDistinctResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &model.Item{URL: "https://a", Tags: ",python,work,"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &model.Item{URL: "https://b", Tags: ",python,"})
	require.NoError(t, err)

	all, err := s.List(ctx, Filter{Tags: TagPredicate{All: []string{"python", "work"}}})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	any, err := s.List(ctx, Filter{Tags: TagPredicate{Any: []string{"python", "work"}}})
	require.NoError(t, err)
	assert.Len(t, any, 2)
}

func TestList_TagsExactMatchesOnlyIdenticalSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &model.Item{URL: "https://a", Tags: ",python,work,"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &model.Item{URL: "https://b", Tags: ",python,"})
	require.NoError(t, err)

	items, err := s.List(ctx, Filter{Tags: TagPredicate{Exact: []string{"python"}}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://b", items[0].URL)
}

func TestList_OrderingUpdatedDescPutsRecentlyUpdatedFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, &model.Item{URL: "https://a"})
	require.NoError(t, err)
	second, err := s.Insert(ctx, &model.Item{URL: "https://b"})
	require.NoError(t, err)

	// touch first again so it becomes the most recently updated
	first.Metadata = "touched"
	time.Sleep(time.Second)
	require.NoError(t, s.Update(ctx, first))

	items, err := s.List(ctx, Filter{Order: OrderUpdatedDesc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
}
