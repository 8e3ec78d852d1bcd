package vecstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	pkgredis "github.com/PortlandKyGuy/langroid/pkg/redis"
)

var phrases = []string{
	"hello",
	"hi there",
	"people living in Canada",
	"people not living in Canada",
	"people over 40",
	"people under 40",
	"what is the capital of France?",
	"which city is Belgium's capital?",
}

func storedDocs() []model.Document {
	docs := make([]model.Document, len(phrases))
	for i, p := range phrases {
		docs[i] = model.Document{
			Content:  p,
			Metadata: model.DocMetaData{ID: fmt.Sprintf("%d", i)},
		}
	}
	return docs
}

// backends returns one store per available backend. Redis joins only when
// REDIS_URL points at a reachable server.
func backends(t *testing.T) map[string]VectorStore {
	t.Helper()
	emb := NewHashEmbedder(0)

	stores := map[string]VectorStore{
		"memory": NewMemoryStore(emb),
	}

	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vec.db"), emb)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	stores["sqlite"] = sq

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg := pkgredis.Config{URL: url, ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 5}
		rdb, err := cfg.New()
		require.NoError(t, err)
		stores["redis"] = NewRedisStore(rdb, emb)
	}

	return stores
}

func TestVectorStoresAccess(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SetCollection(ctx, "test-docs", true))
			require.NoError(t, store.AddDocuments(ctx, storedDocs()))

			all, err := store.GetAllDocuments(ctx)
			require.NoError(t, err)
			assert.Len(t, all, len(phrases))

			require.NoError(t, store.DeleteCollection(ctx, "test-docs"))
			require.NoError(t, store.SetCollection(ctx, "test-docs", false))
			all, err = store.GetAllDocuments(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			require.NoError(t, store.AddDocuments(ctx, storedDocs()))
			all, err = store.GetAllDocuments(ctx)
			require.NoError(t, err)
			require.Len(t, all, len(phrases))

			ids := make([]string, 0, 3)
			for _, d := range all[:3] {
				ids = append(ids, d.Metadata.ID)
			}
			got, err := store.GetDocumentsByIDs(ctx, ids)
			require.NoError(t, err)
			assert.Len(t, got, 3)

			// re-adding a document with a known ID updates it in place
			updated := model.Document{
				Content:  "hello again",
				Metadata: model.DocMetaData{ID: "0"},
			}
			require.NoError(t, store.AddDocuments(ctx, []model.Document{updated}))
			all, err = store.GetAllDocuments(ctx)
			require.NoError(t, err)
			assert.Len(t, all, len(phrases))
			got, err = store.GetDocumentsByIDs(ctx, []string{"0"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "hello again", got[0].Content)

			for i := 0; i < 3; i++ {
				require.NoError(t, store.CreateCollection(ctx, fmt.Sprintf("test_junk_%d", i)))
			}
			names, err := store.ListCollections(ctx, true)
			require.NoError(t, err)
			junk := 0
			for _, n := range names {
				if len(n) >= 9 && n[:9] == "test_junk" {
					junk++
				}
			}
			deleted, err := store.ClearAllCollections(ctx, true, "test_junk")
			require.NoError(t, err)
			assert.Equal(t, junk, deleted)

			// without confirmation nothing is deleted
			deleted, err = store.ClearAllCollections(ctx, false, "")
			require.NoError(t, err)
			assert.Zero(t, deleted)
			names, err = store.ListCollections(ctx, false)
			require.NoError(t, err)
			assert.Contains(t, names, "test-docs")

			// cleanup for shared backends
			_, err = store.ClearAllCollections(ctx, true, "test-docs")
			require.NoError(t, err)
		})
	}
}

func TestVectorStoresSearch(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SetCollection(ctx, "test-search", true))
			require.NoError(t, store.AddDocuments(ctx, storedDocs()))

			for _, query := range []string{"hi there", "which city is Belgium's capital?"} {
				results, err := store.SimilarTextsWithScores(ctx, query, len(phrases))
				require.NoError(t, err)
				require.NotEmpty(t, results)

				// best match first; an exact phrase matches itself perfectly
				assert.Equal(t, query, results[0].Document.Content)
				assert.InDelta(t, 1.0, results[0].Score, 1e-6)
				for i := 1; i < len(results); i++ {
					assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
				}
			}

			results, err := store.SimilarTextsWithScores(ctx, "hello", 3)
			require.NoError(t, err)
			assert.Len(t, results, 3)

			_, err = store.ClearAllCollections(ctx, true, "test-search")
			require.NoError(t, err)
		})
	}
}

func TestVectorStoresReplaceAndEmptyCollections(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SetCollection(ctx, "test-replace", true))
			require.NoError(t, store.AddDocuments(ctx, storedDocs()))
			require.NoError(t, store.SetCollection(ctx, "test-replace", true))
			all, err := store.GetAllDocuments(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			require.NoError(t, store.CreateCollection(ctx, "test-empty"))
			names, err := store.ListCollections(ctx, true)
			require.NoError(t, err)
			assert.Contains(t, names, "test-empty")
			names, err = store.ListCollections(ctx, false)
			require.NoError(t, err)
			assert.NotContains(t, names, "test-empty")

			deleted, err := store.ClearEmptyCollections(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, deleted, 1)
			names, err = store.ListCollections(ctx, true)
			require.NoError(t, err)
			assert.NotContains(t, names, "test-empty")
		})
	}
}

func TestStoreRequiresCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewHashEmbedder(0))

	err := store.AddDocuments(ctx, storedDocs())
	assert.Error(t, err)
	_, err = store.SimilarTextsWithScores(ctx, "hello", 1)
	assert.Error(t, err)
	_, err = store.GetAllDocuments(ctx)
	assert.Error(t, err)
}

func TestDeleteMissingCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewHashEmbedder(0))

	assert.Error(t, store.DeleteCollection(ctx, "never-created"))
}
