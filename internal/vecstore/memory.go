package vecstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	errx "github.com/PortlandKyGuy/langroid/internal/core/error"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// MemoryStore keeps collections in process memory. It is the backend used in
// tests and for throwaway sessions.
type MemoryStore struct {
	embedder Embedder

	mu          sync.RWMutex
	collections map[string][]embeddedDoc
	current     string
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string][]embeddedDoc),
	}
}

func (s *MemoryStore) SetCollection(_ context.Context, name string, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		delete(s.collections, name)
	}
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	s.current = name
	return nil
}

func (s *MemoryStore) CollectionName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *MemoryStore) AddDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if s.CollectionName() == "" {
		return errx.WrapStore(errx.ErrNoCollection)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		s.collections[s.current] = upsertDoc(s.collections[s.current], embeddedDoc{doc: d, vec: vecs[i]})
	}
	return nil
}

// upsertDoc replaces an existing entry with the same document ID in place, so
// re-adding a document updates it instead of duplicating it.
func upsertDoc(items []embeddedDoc, ed embeddedDoc) []embeddedDoc {
	for i, it := range items {
		if it.doc.Metadata.ID == ed.doc.Metadata.ID {
			items[i] = ed
			return items
		}
	}
	return append(items, ed)
}

func (s *MemoryStore) SimilarTextsWithScores(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if s.CollectionName() == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	qv, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return topKByCosine(qv[0], s.collections[s.current], k), nil
}

func (s *MemoryStore) GetAllDocuments(_ context.Context) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	items := s.collections[s.current]
	docs := make([]model.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, it.doc)
	}
	return docs, nil
}

func (s *MemoryStore) GetDocumentsByIDs(_ context.Context, ids []string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	byID := make(map[string]model.Document, len(s.collections[s.current]))
	for _, it := range s.collections[s.current] {
		byID[it.doc.Metadata.ID] = it.doc
	}

	var docs []model.Document
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (s *MemoryStore) ListCollections(_ context.Context, includeEmpty bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name, docs := range s.collections {
		if !includeEmpty && len(docs) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return errx.WrapStore(errx.ErrCollectionNotFound)
	}
	delete(s.collections, name)
	if s.current == name {
		s.current = ""
	}
	return nil
}

func (s *MemoryStore) ClearAllCollections(_ context.Context, confirm bool, prefix string) (int, error) {
	if !confirm {
		logx.Warn().Msg("clear all collections not confirmed; nothing deleted")
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for name := range s.collections {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		delete(s.collections, name)
		if s.current == name {
			s.current = ""
		}
		deleted++
	}
	return deleted, nil
}

func (s *MemoryStore) ClearEmptyCollections(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for name, docs := range s.collections {
		if len(docs) > 0 {
			continue
		}
		delete(s.collections, name)
		if s.current == name {
			s.current = ""
		}
		deleted++
	}
	return deleted, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
