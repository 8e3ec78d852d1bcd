package vecstore

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

const geminiEmbedDim = 768

// GeminiEmbedder computes embeddings with the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, embedModel string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: embedModel}
}

func (e *GeminiEmbedder) Dim() int {
	return geminiEmbedDim
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(geminiEmbedDim)),
	})
	if err != nil {
		logx.Error().Err(err).Str("model", e.model).Msg("embedding request failed")
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed content: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
