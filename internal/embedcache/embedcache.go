// Package embedcache keeps each embeddable item's vector in sync with its
// user-visible content: a content-hash comparison decides whether a write
// needs a fresh embedding, and a backfill sweep catches anything left stale.
package embedcache

import (
	"context"
	"crypto/md5"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

// backfillConcurrency bounds how many embeddings Backfill computes at once.
// Store and VectorIndex both guard their state with internal mutexes, so
// concurrent SyncOnWrite calls on distinct items are safe; the embedder
// itself is typically the slow, network-bound part of a refresh.
const backfillConcurrency = 8

// Embedder is the external vector-producing collaborator. Production
// wiring points this at a real embedding service; tests use a stub.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ContentHash computes the MD5 of an item's canonical embedding input.
func ContentHash(it *model.Item) []byte {
	sum := md5.Sum([]byte(it.EmbeddingInput()))
	return sum[:]
}

// NeedsRefresh reports whether it's stored content hash is missing or stale
// relative to its current user-visible fields.
func NeedsRefresh(it *model.Item) bool {
	if !it.Embeddable {
		return false
	}
	if it.ContentHash == nil {
		return true
	}
	want := ContentHash(it)
	if len(it.ContentHash) != len(want) {
		return true
	}
	for i := range want {
		if it.ContentHash[i] != want[i] {
			return true
		}
	}
	return false
}

// Refresher recomputes and persists embeddings for items whose content has
// drifted from their stored hash, keeping an in-memory vector index in step
// with the store.
type Refresher struct {
	Store    *store.Store
	Index    *store.VectorIndex
	Embedder Embedder
}

// New returns a Refresher wired to s, idx and embedder.
func New(s *store.Store, idx *store.VectorIndex, embedder Embedder) *Refresher {
	return &Refresher{Store: s, Index: idx, Embedder: embedder}
}

// SyncOnWrite is the write-path hook: called after an insert or update, it
// clears the embedding when embeddable has flipped false, or recomputes it
// when the content hash is stale. it is mutated in place and, if changed,
// persisted via the store.
func (r *Refresher) SyncOnWrite(ctx context.Context, it *model.Item) error {
	if !it.Embeddable {
		if it.Embedding != nil || it.ContentHash != nil {
			it.Embedding = nil
			it.ContentHash = nil
			if err := r.Store.Update(ctx, it); err != nil {
				return err
			}
			r.Index.Remove(uint64(it.ID))
		}
		return nil
	}

	if !NeedsRefresh(it) {
		return nil
	}

	vec, err := r.Embedder.Embed(ctx, it.EmbeddingInput())
	if err != nil {
		return apperr.Wrap(apperr.CodeEmbedderUnavailable, "while computing embedding", err)
	}

	it.Embedding = store.EncodeEmbedding(vec)
	it.ContentHash = ContentHash(it)
	if err := r.Store.Update(ctx, it); err != nil {
		return err
	}
	r.Index.Upsert(uint64(it.ID), vec)
	return nil
}

// BackfillResult summarizes a backfill sweep.
type BackfillResult struct {
	Scanned   int
	Stale     int
	Refreshed int
	Failed    []BackfillFailure
}

// BackfillFailure names one item that could not be refreshed.
type BackfillFailure struct {
	ItemID int64
	Err    error
}

// Backfill scans every item and refreshes the stale embeddable ones, in
// bounded-concurrency batches of backfillConcurrency so a slow embedder
// doesn't serialize the whole sweep. In dry-run mode it only counts what
// would change.
func (r *Refresher) Backfill(ctx context.Context, dryRun bool) (BackfillResult, error) {
	items, err := r.Store.List(ctx, store.Filter{})
	if err != nil {
		return BackfillResult{}, err
	}

	var result BackfillResult
	var stale []*model.Item
	for _, it := range items {
		result.Scanned++
		if !it.Embeddable || !NeedsRefresh(it) {
			continue
		}
		result.Stale++
		stale = append(stale, it)
	}
	if dryRun || len(stale) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)
	for _, it := range stale {
		it := it
		g.Go(func() error {
			if err := r.SyncOnWrite(gctx, it); err != nil {
				mu.Lock()
				result.Failed = append(result.Failed, BackfillFailure{ItemID: it.ID, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result, nil
}
