// Package provider defines the streaming completion client used by the chat
// session store.
//
// CareChat talks to several completion endpoints (Groq by default, OpenAI,
// Anthropic and a local Ollama server) through one Client interface so the
// session store stays provider-agnostic and can be tested with a scripted
// mock.
//
// # Callback contract
//
// Every Client.Stream implementation goes through the same dispatcher, which
// guarantees:
//   - OnDelta receives only non-empty text fragments, in arrival order
//   - exactly one of OnComplete or OnError fires, never both
//   - nothing fires after the context is cancelled; cancellation ends the
//     stream silently
//
// # Usage
//
//	client, err := provider.NewClient(provider.Config{
//	    Type:         provider.ProviderTypeGroq,
//	    APIKey:       key,
//	    SystemPrompt: config.DefaultSystemPrompt,
//	})
//	if err != nil {
//	    // handle error
//	}
//	client.Stream(ctx, req, provider.Callbacks{OnDelta: ..., OnComplete: ..., OnError: ...})
package provider

import (
	"context"
	"net/http"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeGroq      ProviderType = "groq"
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type         ProviderType
	BaseURL      string
	APIKey       string // unused for Ollama
	SystemPrompt string // prepended to every conversation

	// HTTPClient overrides the transport. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Message is one turn of conversation history as sent to the endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Callbacks receive the events of one streamed completion.
type Callbacks struct {
	OnDelta    func(text string)
	OnComplete func()
	OnError    func(err error)
}

type ModelInfo struct {
	Name     string
	Provider string // provider ID: "groq", "openai", "anthropic", "ollama"
	Size     int64  // bytes, 0 when the provider does not report it
}

// Client is a completion endpoint.
type Client interface {
	// Stream sends req and delivers the response through cb. It blocks until
	// the response ends, fails, or ctx is cancelled.
	Stream(ctx context.Context, req Request, cb Callbacks)

	// Complete sends req without streaming and returns the full reply.
	Complete(ctx context.Context, req Request) (string, error)

	// ListModels returns the models the endpoint offers.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name returns the provider ID.
	Name() string
}
