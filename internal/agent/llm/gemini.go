package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// ClientConfig holds what is needed to reach the Gemini API.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewClient creates the shared Gemini API client.
func NewClient(ctx context.Context, cfg ClientConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModel creates the chat model used by agents.
func NewChatModel(ctx context.Context, client *genai.Client, cfg model.ChatModelConfig) (einomodel.BaseChatModel, error) {
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return cm, nil
}
