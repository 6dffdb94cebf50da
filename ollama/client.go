package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

type Client struct {
	client  *api.Client
	baseURL string
}

// ChunkCallback receives each content fragment of a chat response.
type ChunkCallback func(chunk string) error

// ModelInfo describes a model installed on the Ollama server.
type ModelInfo struct {
	Name string
	Size int64
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(parsedURL, httpClient),
		baseURL: baseURL,
	}, nil
}

// Chat sends a chat request for model. With stream set, callback receives
// every fragment as it arrives; otherwise it is called once with the full
// reply.
func (c *Client) Chat(ctx context.Context, model string, messages []api.Message, temperature float64, stream bool, callback ChunkCallback) error {
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": temperature,
		},
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback != nil {
			return callback(resp.Message.Content)
		}
		return nil
	}

	return c.client.Chat(ctx, req, respFunc)
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]ModelInfo, len(resp.Models))
	for i, model := range resp.Models {
		models[i] = ModelInfo{
			Name: model.Name,
			Size: model.Size,
		}
	}

	return models, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
