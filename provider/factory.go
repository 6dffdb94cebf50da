package provider

import (
	"fmt"

	"carechat/config"
)

// NewClient creates a client based on configuration.
//
// Supported provider types:
//   - ProviderTypeGroq: Groq's OpenAI-compatible API (default)
//   - ProviderTypeOpenAI: OpenAI or any OpenAI-compatible endpoint
//   - ProviderTypeAnthropic: Anthropic Messages API
//   - ProviderTypeOllama: local Ollama server
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (missing API key, invalid URL).
func NewClient(cfg Config) (Client, error) {
	switch cfg.Type {
	case ProviderTypeGroq:
		return NewGroqClient(cfg.BaseURL, cfg.APIKey, cfg.SystemPrompt, cfg.HTTPClient)
	case ProviderTypeOpenAI:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.SystemPrompt, cfg.HTTPClient)
	case ProviderTypeAnthropic:
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, cfg.SystemPrompt, cfg.HTTPClient)
	case ProviderTypeOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.SystemPrompt, cfg.HTTPClient)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
//
// "openrouter" and other OpenAI-compatible gateways map to
// ProviderTypeOpenAI. Unknown IDs are passed through and rejected by
// NewClient.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "groq":
		return ProviderTypeGroq
	case "ollama":
		return ProviderTypeOllama
	case "openai", "openrouter":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}

// FromConfig builds the client for the configured default provider.
func FromConfig(cfg *config.Config) (Client, error) {
	p := cfg.ActiveProvider()
	if !p.Enabled {
		return nil, fmt.Errorf("provider %q is disabled in config.toml", p.ID)
	}

	client, err := NewClient(Config{
		Type:         MapProviderIDToType(p.ID),
		BaseURL:      p.BaseURL,
		APIKey:       cfg.APIKey(p.ID),
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.ProviderDisplayName(p.ID), err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Using %s at %s", p.ID, p.BaseURL)
	}
	return client, nil
}
