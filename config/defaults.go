package config

// DefaultSystemPrompt is injected ahead of every conversation sent to a
// completion endpoint.
const DefaultSystemPrompt = "You are CareChat, a friendly health information assistant. " +
	"Give clear, accurate and concise answers about symptoms, conditions, medications and healthy living. " +
	"You are not a doctor: remind users to consult a healthcare professional for diagnosis or treatment, " +
	"and tell them to contact emergency services or visit the nearest hospital when symptoms sound serious."

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/carechat",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		DefaultProvider: "groq",
		DefaultModel:    "llama3-70b-8192",
		Temperature:     0.7,
		StorageBackend:  "file",
		SecurityMethod:  SecurityPlainText,
		Providers: []ProviderConfig{
			{
				ID:      "groq",
				Name:    "Groq",
				Enabled: true,
				BaseURL: DefaultProviderBaseURL("groq"),
				Models:  DefaultProviderModels("groq"),
			},
		},
	}
}

// ProviderDisplayName returns the display name for a provider
func ProviderDisplayName(providerID string) string {
	switch providerID {
	case "groq":
		return "Groq"
	case "ollama":
		return "Ollama"
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return providerID
	}
}

// DefaultProviderBaseURL returns the default base URL for a provider
func DefaultProviderBaseURL(providerID string) string {
	switch providerID {
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "ollama":
		return "http://localhost:11434"
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

// DefaultProviderModels returns the model identifiers offered for a provider
// when the config file does not list any.
func DefaultProviderModels(providerID string) []string {
	switch providerID {
	case "groq":
		return []string{"llama3-8b-8192", "llama3-70b-8192", "mixtral-8x7b-32768", "gemma-7b-it"}
	case "ollama":
		return []string{"llama3.1:latest"}
	case "anthropic":
		return []string{"claude-sonnet-4-5-20250929", "claude-3-5-haiku-20241022"}
	case "openai":
		return []string{"gpt-4o-mini", "gpt-4o"}
	default:
		return nil
	}
}

func GenerateSystemConfigTemplate() string {
	return `# CareChat System Configuration
# Location: ~/.config/carechat/settings.toml
# This file uses TOML format: https://toml.io

# Directory where sessions, credentials and user config are stored
data_directory = "~/.local/share/carechat"
`
}

func GenerateUserConfigTemplate() string {
	return `# CareChat User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Provider used for new conversations: groq, openai, anthropic or ollama
default_provider = "groq"

# Model for new sessions (must be listed in the provider's models)
default_model = "llama3-70b-8192"

# Sampling temperature sent with every request
temperature = 0.7

# Product system prompt (leave empty for the built-in one)
system_prompt = ""

# Where chat sessions are kept: "file" or "sqlite"
storage_backend = "file"

# Encrypt stored sessions with a key derived from your SSH key
# (requires security_method = "ssh_key")
encrypt_sessions = false

# How API keys are stored: "plaintext" or "ssh_key"
security_method = "plaintext"
ssh_key_path = ""

[[providers]]
id = "groq"
name = "Groq"
enabled = true
base_url = "https://api.groq.com/openai/v1"
models = ["llama3-8b-8192", "llama3-70b-8192", "mixtral-8x7b-32768", "gemma-7b-it"]
`
}
