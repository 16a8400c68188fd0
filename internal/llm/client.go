package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client is an OpenAI-compatible chat completion client. Like the embedding
// client, the base URL may point at OpenAI or a local Ollama endpoint.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration

	// Stats collects call latencies for the diagnostics endpoint.
	Stats *Stats
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		Stats:   NewStats(time.Hour),
	}
}

// Generate runs a single chat completion and returns the model's text
// verbatim. No retries: a failed or timed-out call surfaces to the caller.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	c.Stats.Record(time.Since(start).Milliseconds())
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured generation model name.
func (c *Client) Model() string { return c.model }
