package store

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/bkmr/bkmr/internal/apperr"
)

// VectorResult is one semantic-search hit, ordered by similarity with
// lower id breaking ties.
type VectorResult struct {
	ItemID     int64
	Similarity float32
}

// VectorIndex is an in-memory cosine-similarity index over every item's
// persisted embedding BLOB. Embeddings live in the items table, not in a
// separately persisted index file: the index is rebuilt from the store on
// startup and kept current by Upsert/Remove as writes happen, so a new
// vector is immediately visible to subsequent search.
type VectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dim     int
	removed map[uint64]struct{}
}

// NewVectorIndex creates an empty index for vectors of the given
// dimensionality and cosine distance metric.
func NewVectorIndex(dimensions int) *VectorIndex {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &VectorIndex{graph: g, dim: dimensions, removed: make(map[uint64]struct{})}
}

// LoadFromStore populates the index from every item with a non-null
// embedding currently in s.
func LoadFromStore(ctx context.Context, s *Store, dimensions int) (*VectorIndex, error) {
	idx := NewVectorIndex(dimensions)

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM items WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while loading vector index", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, apperr.Wrap(apperr.CodeSchemaError, "while loading vector index", err)
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			continue // skip malformed rows rather than fail the whole load
		}
		idx.Upsert(uint64(id), vec)
	}
	return idx, rows.Err()
}

// Upsert inserts or replaces the vector for itemID. Cosine similarity
// search requires unit-length vectors, so the vector is normalised here.
func (v *VectorIndex) Upsert(itemID uint64, vec []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	node := hnsw.MakeNode(itemID, normalized)
	v.graph.Add(node)
	delete(v.removed, itemID)
}

// Remove drops itemID's vector from future search results. This is a lazy
// deletion: the node stays in the underlying graph (removing the last node
// in a coder/hnsw graph corrupts it), it is just filtered out of results.
func (v *VectorIndex) Remove(itemID uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removed[itemID] = struct{}{}
}

// Search returns the k nearest neighbours of query by cosine similarity,
// restricted to allowedIDs when non-nil (the tag-set pre-filter used by
// semantic query mode).
func (v *VectorIndex) Search(query []float32, k int, allowedIDs map[int64]struct{}) []VectorResult {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 {
		return nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	searchK := k
	if allowedIDs != nil {
		searchK = k * 4 // over-fetch since the pre-filter may exclude many candidates
		if searchK < k {
			searchK = k
		}
	}

	nodes := v.graph.Search(normalized, searchK)
	results := make([]VectorResult, 0, len(nodes))
	for _, n := range nodes {
		if _, gone := v.removed[n.Key]; gone {
			continue
		}
		itemID := int64(n.Key)
		if allowedIDs != nil {
			if _, ok := allowedIDs[itemID]; !ok {
				continue
			}
		}
		dist := v.graph.Distance(normalized, n.Value)
		results = append(results, VectorResult{
			ItemID:     itemID,
			Similarity: 1 - dist/2, // cosine distance in [0,2] -> similarity in [0,1]
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ItemID < results[j].ItemID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// EncodeEmbedding serialises a float32 vector as little-endian IEEE-754
// bytes with no length prefix.
func EncodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding reverses EncodeEmbedding.
func DecodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, apperr.New(apperr.CodeEmbedFormatError, "embedding byte length is not a multiple of 4", nil)
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
