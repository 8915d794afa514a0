package query

import (
	"context"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

// Embedder is the query package's view of the external embedding
// collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Semantic embeds freeText and returns the top-k items by cosine
// similarity among those with non-null embeddings, honouring tags as a
// pre-filter. The text DSL is ignored in this mode.
func Semantic(ctx context.Context, s *store.Store, idx *store.VectorIndex, embedder Embedder, freeText string, tags TagArgs, k int) ([]*model.Item, error) {
	vec, err := embedder.Embed(ctx, freeText)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeEmbedderUnavailable, "while embedding semantic query", err)
	}

	var allowed map[int64]struct{}
	pred := store.TagPredicate{
		All:    union(tags.All, tags.AllPrefix),
		Any:    union(tags.Any, tags.AnyPrefix),
		NotAll: union(tags.NotAll, tags.NotAllPrefix),
		NotAny: union(tags.NotAny, tags.NotAnyPrefix),
		Exact:  tags.Exact,
	}
	if !pred.IsZero() {
		candidates, err := s.List(ctx, store.Filter{Tags: pred})
		if err != nil {
			return nil, err
		}
		allowed = make(map[int64]struct{}, len(candidates))
		for _, it := range candidates {
			allowed[it.ID] = struct{}{}
		}
	}

	hits := idx.Search(vec, k, allowed)

	items := make([]*model.Item, 0, len(hits))
	for _, h := range hits {
		it, err := s.Get(ctx, h.ItemID)
		if err != nil {
			continue // item removed between index search and fetch
		}
		items = append(items, it)
	}
	return items, nil
}
