package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder converts text into a semantic vector. Implementations must be
// deterministic for a fixed model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Client is an OpenAI-compatible embeddings client. The base URL is
// configurable so the same client talks to OpenAI or a local
// Ollama-compatible endpoint.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Embed returns the embedding vector for text. The call is bounded by the
// client timeout; expiry propagates as a failure, it is not retried here.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response empty")
	}

	src := resp.Data[0].Embedding
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out, nil
}

// Model returns the configured embedding model name.
func (c *Client) Model() string { return c.model }
