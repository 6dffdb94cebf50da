package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient implements Client using OpenAI's official Go SDK. It also
// serves any other OpenAI-compatible endpoint through BaseURL.
type OpenAIClient struct {
	client       openai.Client
	baseURL      string
	systemPrompt string
}

// NewOpenAIClient creates a new OpenAI client.
//
// Returns an error if the API key is missing.
func NewOpenAIClient(baseURL, apiKey, systemPrompt string, httpClient *http.Client) (*OpenAIClient, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI %w", ErrMissingAPIKey)
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		baseURL:      baseURL,
		systemPrompt: systemPrompt,
	}, nil
}

func (p *OpenAIClient) Name() string {
	return string(ProviderTypeOpenAI)
}

func (p *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:    ConvertToOpenAIMessages(withSystemPrompt(p.systemPrompt, req.Messages)),
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(req.Temperature),
	}
}

// Stream implements Client.Stream.
func (p *OpenAIClient) Stream(ctx context.Context, req Request, cb Callbacks) {
	dispatch(ctx, cb, func(ctx context.Context, emit func(string)) error {
		stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 {
				emit(chunk.Choices[0].Delta.Content)
			}
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("OpenAI streaming error: %w", err)
		}
		return nil
	})
}

// Complete implements Client.Complete.
func (p *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return "", fmt.Errorf("OpenAI completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements Client.ListModels.
func (p *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, ModelInfo{
			Name:     m.ID,
			Provider: p.Name(),
		})
	}

	return result, nil
}
