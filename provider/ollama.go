package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"carechat/ollama"
)

// OllamaClient wraps ollama.Client to implement Client against a local
// Ollama server. No API key is needed.
type OllamaClient struct {
	client       *ollama.Client
	systemPrompt string
}

// NewOllamaClient creates a new Ollama client. An empty baseURL means
// http://localhost:11434.
func NewOllamaClient(baseURL, systemPrompt string, httpClient *http.Client) (*OllamaClient, error) {
	client, err := ollama.NewClient(baseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaClient{
		client:       client,
		systemPrompt: systemPrompt,
	}, nil
}

func (p *OllamaClient) Name() string {
	return string(ProviderTypeOllama)
}

// Stream implements Client.Stream.
func (p *OllamaClient) Stream(ctx context.Context, req Request, cb Callbacks) {
	messages := ConvertToOllamaMessages(withSystemPrompt(p.systemPrompt, req.Messages))

	dispatch(ctx, cb, func(ctx context.Context, emit func(string)) error {
		err := p.client.Chat(ctx, req.Model, messages, req.Temperature, true, func(chunk string) error {
			emit(chunk)
			return nil
		})
		if err != nil {
			return fmt.Errorf("Ollama streaming error: %w", err)
		}
		return nil
	})
}

// Complete implements Client.Complete.
func (p *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := ConvertToOllamaMessages(withSystemPrompt(p.systemPrompt, req.Messages))

	var sb strings.Builder
	err := p.client.Chat(ctx, req.Model, messages, req.Temperature, false, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama completion error: %w", err)
	}
	return sb.String(), nil
}

// ListModels implements Client.ListModels.
func (p *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	installed, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]ModelInfo, len(installed))
	for i, m := range installed {
		result[i] = ModelInfo{
			Name:     m.Name,
			Provider: p.Name(),
			Size:     m.Size,
		}
	}
	return result, nil
}

// Ping checks that the Ollama server is reachable.
func (p *OllamaClient) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
