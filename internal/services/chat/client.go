package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
)

// CompletionClient is the single opaque call the conversation engine makes
// to the model provider. Tests substitute a scripted fake.
type CompletionClient interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openaiClient struct {
	client openai.Client
}

// NewOpenAIClient builds the production CompletionClient from config.
func NewOpenAIClient(cfg models.ChatConfig) CompletionClient {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(cfg.APIKey),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(cfg.BaseURL))
	}

	if cfg.TimeoutMs > 0 {
		httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
		opts = append(opts, openaiOption.WithHTTPClient(httpClient))
	}

	return &openaiClient{client: openai.NewClient(opts...)}
}

func (c *openaiClient) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
