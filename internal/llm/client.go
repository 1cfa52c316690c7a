// Package llm is a minimal OpenAI-compatible chat client used for session
// summarization. All transport goes through the bounded-retry HTTP client, so
// an unreachable endpoint surfaces as a typed unreachable-dependency error.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/klangab/whisper-batch-worker/internal/retryhttp"
)

// Client talks to an OpenAI-compatible chat completion endpoint.
// Thread-safe for concurrent use; endpoint and model may be swapped at
// runtime through SetEndpoint.
type Client struct {
	httpClient *retryhttp.Client

	mu     sync.RWMutex
	config Config
}

// NewClient creates a new LLM client with the given configuration.
func NewClient(config Config, httpClient *retryhttp.Client) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Client{
		httpClient: httpClient,
		config:     config,
	}, nil
}

// SetEndpoint applies a runtime settings update. Affects subsequent calls only.
func (c *Client) SetEndpoint(baseURL, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(baseURL) != "" {
		c.config.BaseURL = baseURL
	}
	if strings.TrimSpace(model) != "" {
		c.config.Model = model
	}
}

func (c *Client) snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ChatCompletion sends messages to the chat completion endpoint.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (*ChatResponse, error) {
	cfg := c.snapshot()

	request := ChatRequest{
		Model:       cfg.model(),
		Messages:    messages,
		Temperature: cfg.temperature(),
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/v1/chat/completions"
	var response ChatResponse
	if err := c.httpClient.PostJSONWithHeaders(ctx, url, body, headers, &response); err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if response.Error != nil && response.Error.Message != "" {
		return &response, response.Error
	}
	return &response, nil
}

// Complete sends a single user prompt and returns the assistant's content.
// Satisfies the pipeline's Summarizer contract.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.ChatCompletion(ctx, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}
