package vecstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	errx "github.com/PortlandKyGuy/langroid/internal/core/error"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// SQLiteStore persists collections in a local SQLite database. Embeddings are
// stored as little-endian float32 blobs and ranked in Go; with the sqlite_vec
// build tag the sqlite-vec extension is registered for callers that want it.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
	current  string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, embedder: embedder}, nil
}

func (s *SQLiteStore) SetCollection(ctx context.Context, name string, replace bool) error {
	if replace {
		if err := s.DeleteCollection(ctx, name); err != nil && !errors.Is(err, errx.ErrCollectionNotFound) {
			return err
		}
	}
	if err := s.CreateCollection(ctx, name); err != nil {
		return err
	}
	s.current = name
	return nil
}

func (s *SQLiteStore) CollectionName() string {
	return s.current
}

func (s *SQLiteStore) AddDocuments(ctx context.Context, docs []model.Document) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapStore(err)
	}
	defer tx.Rollback()

	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal document metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents (collection, id, content, metadata, embedding) VALUES (?, ?, ?, ?, ?)`,
			s.current, d.Metadata.ID, d.Content, string(meta), encodeVector(vecs[i]),
		)
		if err != nil {
			return errx.WrapStore(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errx.WrapStore(err)
	}
	return nil
}

func (s *SQLiteStore) SimilarTextsWithScores(ctx context.Context, query string, k int) ([]SearchResult, error) {
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

func (s *SQLiteStore) loadCollection(ctx context.Context, name string) ([]embeddedDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM documents WHERE collection = ?`, name)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var items []embeddedDoc
	for rows.Next() {
		var (
			id, content, meta string
			blob              []byte
		)
		if err := rows.Scan(&id, &content, &meta, &blob); err != nil {
			return nil, errx.WrapStore(err)
		}
		doc := model.Document{Content: content}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			logx.Warn().Err(err).Str("id", id).Msg("unreadable document metadata; keeping id only")
			doc.Metadata = model.DocMetaData{ID: id}
		}
		items = append(items, embeddedDoc{doc: doc, vec: decodeVector(blob)})
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetAllDocuments(ctx context.Context) ([]model.Document, error) {
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

func (s *SQLiteStore) GetDocumentsByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if s.current == "" {
		return nil, errx.WrapStore(errx.ErrNoCollection)
	}

	var docs []model.Document
	for _, id := range ids {
		var (
			content, meta string
		)
		err := s.db.QueryRowContext(ctx,
			`SELECT content, metadata FROM documents WHERE collection = ? AND id = ?`,
			s.current, id,
		).Scan(&content, &meta)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, errx.WrapStore(err)
		}
		doc := model.Document{Content: content}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			doc.Metadata = model.DocMetaData{ID: id}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context, includeEmpty bool) ([]string, error) {
	query := `SELECT c.name FROM collections c ORDER BY c.name`
	if !includeEmpty {
		query = `SELECT c.name FROM collections c
			WHERE EXISTS (SELECT 1 FROM documents d WHERE d.collection = c.name)
			ORDER BY c.name`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errx.WrapStore(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, name)
	if err != nil {
		return errx.WrapStore(err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return errx.WrapStore(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errx.WrapStore(errx.ErrCollectionNotFound)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name); err != nil {
		return errx.WrapStore(err)
	}
	if s.current == name {
		s.current = ""
	}
	return nil
}

func (s *SQLiteStore) ClearAllCollections(ctx context.Context, confirm bool, prefix string) (int, error) {
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

func (s *SQLiteStore) ClearEmptyCollections(ctx context.Context) (int, error) {
	all, err := s.ListCollections(ctx, true)
	if err != nil {
		return 0, err
	}
	nonEmpty, err := s.ListCollections(ctx, false)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]struct{}, len(nonEmpty))
	for _, name := range nonEmpty {
		keep[name] = struct{}{}
	}

	deleted := 0
	for _, name := range all {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := s.DeleteCollection(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector serialises a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
