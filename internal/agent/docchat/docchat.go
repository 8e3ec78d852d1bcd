// Package docchat implements the document-QA agent: it ingests user-supplied
// URLs and filesystem paths into a vector store and answers questions with
// retrieved passages as context.
package docchat

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/PortlandKyGuy/langroid/internal/agent/chat"
	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	"github.com/PortlandKyGuy/langroid/internal/parsing"
	"github.com/PortlandKyGuy/langroid/internal/vecstore"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

const searchInstructions = `When you need source material to answer, reply with exactly this JSON template:
{"request": "search", "query": "<what to look for>"}
You will receive the most relevant passages and can then answer from them.`

// Agent is a chat agent specialised for question answering over ingested
// documents. The embedded ChatAgent supplies Start, Respond and Run; the
// "search" structured action routes retrieval requests to the vector store.
type Agent struct {
	*chat.ChatAgent

	cfg     model.DocChatConfig
	store   vecstore.VectorStore
	crawler *parsing.Crawler
}

// New builds the agent. The task messages are the persona system message
// followed by the search template instructions.
func New(
	cfg model.DocChatConfig,
	agentCfg model.ChatAgentConfig,
	crawlCfg model.CrawlConfig,
	llm einomodel.BaseChatModel,
	store vecstore.VectorStore,
	opts ...chat.Option,
) *Agent {
	a := &Agent{
		cfg:     cfg,
		store:   store,
		crawler: parsing.NewCrawler(crawlCfg),
	}

	router := chat.NewActionRouter()
	router.Register("search", a.searchAction)

	persona := agentCfg.SystemMessage
	if persona == "" {
		persona = "You are a helpful assistant"
	}
	task := []*schema.Message{
		schema.SystemMessage(persona + "\n\n" + searchInstructions),
	}

	opts = append([]chat.Option{chat.WithTask(task), chat.WithHandler(router)}, opts...)
	a.ChatAgent = chat.New(agentCfg, llm, opts...)
	return a
}

// Ingest normalizes the inputs, fetches page text for each URL and reads each
// path (directories recursively), then stores everything in the current
// collection. It returns how many documents were added. Per-item failures are
// logged and skipped.
func (a *Agent) Ingest(ctx context.Context, inputs []string) (int, error) {
	urls, paths := parsing.GetURLsAndPaths(inputs)

	var docs []model.Document
	for _, u := range urls {
		text, err := a.crawler.FetchText(ctx, u)
		if err != nil {
			logx.Warn().Err(err).Str("url", u).Msg("failed to fetch URL; skipped")
			continue
		}
		if text == "" {
			continue
		}
		docs = append(docs, model.NewDocument(text, u))
	}

	for _, p := range paths {
		fileDocs, err := readPath(p)
		if err != nil {
			logx.Warn().Err(err).Str("path", p).Msg("failed to read path; skipped")
			continue
		}
		docs = append(docs, fileDocs...)
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if err := a.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("store ingested documents: %w", err)
	}
	logx.Info().Int("documents", len(docs)).Str("collection", a.store.CollectionName()).Msg("ingestion complete")
	return len(docs), nil
}

// Search returns the best-matching passages for the query.
func (a *Agent) Search(ctx context.Context, query string, k int) ([]vecstore.SearchResult, error) {
	if k <= 0 {
		k = a.cfg.NSimilarDocs
	}
	return a.store.SimilarTextsWithScores(ctx, query, k)
}

// Answer retrieves context for the question and asks the model to answer
// from it in a single turn.
func (a *Agent) Answer(ctx context.Context, question string) (*model.Document, error) {
	results, err := a.Search(ctx, question, a.cfg.NSimilarDocs)
	if err != nil {
		return nil, err
	}
	return a.Respond(ctx, buildContextMessage(question, results))
}

// searchAction serves the "search" structured action from the Run loop.
func (a *Agent) searchAction(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("search request missing query")
	}

	results, err := a.Search(ctx, query, a.cfg.NSimilarDocs)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant passages found.", nil
	}

	var b strings.Builder
	b.WriteString("Relevant passages:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (score %.3f, source %s) %s\n", i+1, r.Score, r.Document.Metadata.Source, r.Document.Content)
	}
	return b.String(), nil
}

func buildContextMessage(question string, results []vecstore.SearchResult) string {
	var b strings.Builder
	b.WriteString("Use the following passages to answer the question.\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, r.Document.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// readPath reads a file, or every regular file under a directory, into
// documents with the file path as source.
func readPath(p string) ([]model.Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return readFile(p)
	}

	var docs []model.Document
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fileDocs, err := readFile(path)
		if err != nil {
			logx.Warn().Err(err).Str("path", path).Msg("failed to read file; skipped")
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	return docs, err
}

func readFile(path string) ([]model.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(string(b))
	if content == "" {
		return nil, nil
	}
	return []model.Document{model.NewDocument(content, path)}, nil
}
