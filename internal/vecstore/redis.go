package vecstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	errx "github.com/PortlandKyGuy/langroid/internal/core/error"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// RedisStore keeps each collection in a Redis hash of id -> record and the
// collection registry in a set. Similarity is ranked client-side, so it suits
// small-to-medium collections shared between processes.
type RedisStore struct {
	rdb      redis.Cmdable
	embedder Embedder
	current  string
}

func NewRedisStore(rdb redis.Cmdable, embedder Embedder) *RedisStore {
	return &RedisStore{rdb: rdb, embedder: embedder}
}

const redisCollectionsKey = "vecstore:collections"

func redisDocsKey(collection string) string {
	return fmt.Sprintf("vecstore:coll:%s:docs", collection)
}

// redisRecord is the stored form of one document.
type redisRecord struct {
	Content  string            `json:"content"`
	Metadata model.DocMetaData `json:"metadata"`
	Vec      []float32         `json:"vec"`
}

func (s *RedisStore) SetCollection(ctx context.Context, name string, replace bool) error {
	if replace {
		if err := s.rdb.Del(ctx, redisDocsKey(name)).Err(); err != nil {
			return errx.WrapRedis(err)
		}
	}
	if err := s.CreateCollection(ctx, name); err != nil {
		return err
	}
	s.current = name
	return nil
}

func (s *RedisStore) CollectionName() string {
	return s.current
}

func (s *RedisStore) AddDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if s.current == "" {
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

	fields := make(map[string]any, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(redisRecord{Content: d.Content, Metadata: d.Metadata, Vec: vecs[i]})
		if err != nil {
			return fmt.Errorf("marshal document record: %w", err)
		}
		fields[d.Metadata.ID] = b
	}

	if err := s.rdb.HSet(ctx, redisDocsKey(s.current), fields).Err(); err != nil {
		logx.Error().Err(err).Str("collection", s.current).Msg("failed to store documents in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) loadCollection(ctx context.Context, name string) ([]embeddedDoc, error) {
	rows, err := s.rdb.HGetAll(ctx, redisDocsKey(name)).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	items := make([]embeddedDoc, 0, len(rows))
	for id, raw := range rows {
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logx.Warn().Err(err).Str("id", id).Msg("skipping unreadable document record")
			continue
		}
		items = append(items, embeddedDoc{
			doc: model.Document{Content: rec.Content, Metadata: rec.Metadata},
			vec: rec.Vec,
		})
	}
	return items, nil
}

func (s *RedisStore) SimilarTextsWithScores(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	qv, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	items, err := s.loadCollection(ctx, s.current)
	if err != nil {
		return nil, err
	}
	return topKByCosine(qv[0], items, k), nil
}

func (s *RedisStore) GetAllDocuments(ctx context.Context) ([]model.Document, error) {
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	items, err := s.loadCollection(ctx, s.current)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, it.doc)
	}
	return docs, nil
}

func (s *RedisStore) GetDocumentsByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.rdb.HMGet(ctx, redisDocsKey(s.current), ids...).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	var docs []model.Document
	for i, row := range rows {
		raw, ok := row.(string)
		if !ok {
			continue // missing id
		}
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logx.Warn().Err(err).Str("id", ids[i]).Msg("skipping unreadable document record")
			continue
		}
		docs = append(docs, model.Document{Content: rec.Content, Metadata: rec.Metadata})
	}
	return docs, nil
}

func (s *RedisStore) ListCollections(ctx context.Context, includeEmpty bool) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, redisCollectionsKey).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	var out []string
	for _, name := range names {
		if !includeEmpty {
			n, err := s.rdb.HLen(ctx, redisDocsKey(name)).Result()
			if err != nil {
				return nil, errx.WrapRedis(err)
			}
			if n == 0 {
				continue
			}
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) CreateCollection(ctx context.Context, name string) error {
	if err := s.rdb.SAdd(ctx, redisCollectionsKey, name).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) DeleteCollection(ctx context.Context, name string) error {
	removed, err := s.rdb.SRem(ctx, redisCollectionsKey, name).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if removed == 0 {
		return errx.WrapStore(errx.ErrCollectionNotFound)
	}
	if err := s.rdb.Del(ctx, redisDocsKey(name)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	if s.current == name {
		s.current = ""
	}
	return nil
}

func (s *RedisStore) ClearAllCollections(ctx context.Context, confirm bool, prefix string) (int, error) {
	if !confirm {
		logx.Warn().Msg("clear all collections not confirmed; nothing deleted")
		return 0, nil
	}

	names, err := s.ListCollections(ctx, true)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := s.DeleteCollection(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *RedisStore) ClearEmptyCollections(ctx context.Context) (int, error) {
	names, err := s.ListCollections(ctx, true)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		n, err := s.rdb.HLen(ctx, redisDocsKey(name)).Result()
		if err != nil {
			return deleted, errx.WrapRedis(err)
		}
		if n > 0 {
			continue
		}
		if err := s.DeleteCollection(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *RedisStore) Close() error {
	if c, ok := s.rdb.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
