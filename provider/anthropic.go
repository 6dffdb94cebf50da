package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client using Anthropic's official Go SDK.
type AnthropicClient struct {
	client       *anthropic.Client
	baseURL      string
	systemPrompt string
}

// NewAnthropicClient creates a new Anthropic client.
//
// Returns an error if the API key is missing.
func NewAnthropicClient(baseURL, apiKey, systemPrompt string, httpClient *http.Client) (*AnthropicClient, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic %w", ErrMissingAPIKey)
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicClient{
		client:       &client,
		baseURL:      baseURL,
		systemPrompt: systemPrompt,
	}, nil
}

func (p *AnthropicClient) Name() string {
	return string(ProviderTypeAnthropic)
}

func (p *AnthropicClient) params(req Request) anthropic.MessageNewParams {
	messages, system := ConvertToAnthropicMessages(withSystemPrompt(p.systemPrompt, req.Messages))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		Messages:    messages,
		MaxTokens:   4096, // required by the Messages API
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}

// Stream implements Client.Stream.
func (p *AnthropicClient) Stream(ctx context.Context, req Request, cb Callbacks) {
	dispatch(ctx, cb, func(ctx context.Context, emit func(string)) error {
		stream := p.client.Messages.NewStreaming(ctx, p.params(req))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()

			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					emit(deltaVariant.Text)
				}
			}
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("Anthropic streaming error: %w", err)
		}
		return nil
	})
}

// Complete implements Client.Complete.
func (p *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return "", fmt.Errorf("Anthropic completion error: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// ListModels implements Client.ListModels.
func (p *AnthropicClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	// Curated list; the SDK's model constants track what the API accepts.
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, ModelInfo{
			Name:     string(m),
			Provider: p.Name(),
		})
	}

	return result, nil
}
