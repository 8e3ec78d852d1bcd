// Package vecstore provides the vector store capability behind retrieval:
// named collections of embedded documents with similarity search over them.
// Backend selection is a configuration-time choice; all backends satisfy the
// same VectorStore interface.
package vecstore

import (
	"context"
	"math"
	"sort"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
)

// SearchResult pairs a document with its match score. All shipped backends
// score by cosine similarity, so results are ranked descending and the best
// match comes first.
type SearchResult struct {
	Document model.Document
	Score    float64
}

// VectorStore is the capability set the agents depend on. Operations that
// take documents act on the currently selected collection.
type VectorStore interface {
	// SetCollection selects (creating if needed) the working collection.
	// With replace set, an existing collection of that name is dropped first.
	SetCollection(ctx context.Context, name string, replace bool) error

	// CollectionName returns the currently selected collection, or "".
	CollectionName() string

	// AddDocuments embeds and stores documents in the current collection.
	AddDocuments(ctx context.Context, docs []model.Document) error

	// SimilarTextsWithScores returns the k best matches for query, best first.
	SimilarTextsWithScores(ctx context.Context, query string, k int) ([]SearchResult, error)

	// GetAllDocuments returns every document in the current collection.
	GetAllDocuments(ctx context.Context) ([]model.Document, error)

	// GetDocumentsByIDs returns the documents with the given IDs, in ID order.
	GetDocumentsByIDs(ctx context.Context, ids []string) ([]model.Document, error)

	// ListCollections names the existing collections; empty ones are included
	// only when includeEmpty is set.
	ListCollections(ctx context.Context, includeEmpty bool) ([]string, error)

	// CreateCollection creates an empty collection. Creating an existing
	// collection is a no-op.
	CreateCollection(ctx context.Context, name string) error

	// DeleteCollection removes a collection and its documents.
	DeleteCollection(ctx context.Context, name string) error

	// ClearAllCollections deletes every collection whose name has the given
	// prefix ("" matches all) and returns how many were deleted. Without
	// confirm it deletes nothing.
	ClearAllCollections(ctx context.Context, confirm bool, prefix string) (int, error)

	// ClearEmptyCollections deletes collections holding no documents and
	// returns how many were deleted.
	ClearEmptyCollections(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// embeddedDoc is a stored document together with its embedding.
type embeddedDoc struct {
	doc model.Document
	vec []float32
}

// topKByCosine ranks items against the query vector and returns the k best,
// descending by similarity.
func topKByCosine(queryVec []float32, items []embeddedDoc, k int) []SearchResult {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(items))
	for _, it := range items {
		results = append(results, SearchResult{
			Document: it.doc,
			Score:    cosineSimilarity(queryVec, it.vec),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
