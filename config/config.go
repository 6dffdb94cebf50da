package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// ProviderConfig describes one completion endpoint. Models lists the model
// identifiers the session store accepts while this provider is active.
type ProviderConfig struct {
	ID      string   `toml:"id"`
	Name    string   `toml:"name"`
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url"`
	Models  []string `toml:"models,omitempty"`
}

type UserConfig struct {
	DefaultProvider string           `toml:"default_provider"`
	DefaultModel    string           `toml:"default_model"`
	Temperature     float64          `toml:"temperature"`
	SystemPrompt    string           `toml:"system_prompt,omitempty"`
	StorageBackend  string           `toml:"storage_backend"`
	EncryptSessions bool             `toml:"encrypt_sessions"`
	SecurityMethod  SecurityMethod   `toml:"security_method"`
	SSHKeyPath      string           `toml:"ssh_key_path,omitempty"`
	Providers       []ProviderConfig `toml:"providers"`
}

type Config struct {
	DataDirectory   string
	DefaultProvider string
	DefaultModel    string
	Temperature     float64
	SystemPrompt    string
	StorageBackend  string
	EncryptSessions bool
	SecurityMethod  SecurityMethod
	SSHKeyPath      string
	Providers       []ProviderConfig

	// CredentialStore holds provider API keys. Nil until Load succeeds.
	CredentialStore *CredentialStore

	apiKeyOverride string
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the configuration for the given provider id, falling back
// to built-in defaults for known providers.
func (c *Config) Provider(id string) ProviderConfig {
	for _, p := range c.Providers {
		if p.ID == id {
			if p.BaseURL == "" {
				p.BaseURL = DefaultProviderBaseURL(id)
			}
			if len(p.Models) == 0 {
				p.Models = DefaultProviderModels(id)
			}
			return p
		}
	}
	return ProviderConfig{
		ID:      id,
		Name:    ProviderDisplayName(id),
		Enabled: true,
		BaseURL: DefaultProviderBaseURL(id),
		Models:  DefaultProviderModels(id),
	}
}

// ActiveProvider returns the configuration of the default provider.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.Provider(c.DefaultProvider)
}

// APIKey returns the API key for a provider. CARECHAT_API_KEY wins over the
// credential store and applies to the default provider only.
func (c *Config) APIKey(providerID string) string {
	if c.apiKeyOverride != "" && providerID == c.DefaultProvider {
		return c.apiKeyOverride
	}
	if c.CredentialStore == nil {
		return ""
	}
	return c.CredentialStore.Get(providerID)
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.DefaultProvider = u.DefaultProvider
	c.DefaultModel = u.DefaultModel
	c.Temperature = u.Temperature
	c.SystemPrompt = u.SystemPrompt
	c.StorageBackend = u.StorageBackend
	c.EncryptSessions = u.EncryptSessions
	c.SecurityMethod = u.SecurityMethod
	c.SSHKeyPath = u.SSHKeyPath
	c.Providers = u.Providers
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("CARECHAT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if p := os.Getenv("CARECHAT_PROVIDER"); p != "" {
		c.DefaultProvider = p
	}
	if model := os.Getenv("CARECHAT_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if key := os.Getenv("CARECHAT_API_KEY"); key != "" {
		c.apiKeyOverride = key
	}
	if t := os.Getenv("CARECHAT_TEMPERATURE"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			c.Temperature = v
		}
	}
}

func (c *Config) applyDefaults() {
	d := DefaultUserConfig()
	if c.DefaultProvider == "" {
		c.DefaultProvider = d.DefaultProvider
	}
	if c.DefaultModel == "" {
		c.DefaultModel = d.DefaultModel
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.StorageBackend == "" {
		c.StorageBackend = d.StorageBackend
	}
	if c.SecurityMethod == "" {
		c.SecurityMethod = SecurityPlainText
	}
}

func CheckDebug() bool {
	debug := os.Getenv("CARECHAT_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dataDir>/debug.log when CARECHAT_DEBUG is set or force
// is true. Logging stays disabled (DebugLog == nil) otherwise.
func InitDebugLog(dataDir string, force bool) {
	if !force && !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: conversation snippets may end up in the log
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (CARECHAT_DEBUG=%s) ===", os.Getenv("CARECHAT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads the system and user configuration, applies environment
// overrides and opens the credential store.
func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: GetDefaultDataDir(),
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	if systemCfg.DataDirectory != "" {
		cfg.DataDirectory = systemCfg.DataDirectory
	}
	if dataDir := os.Getenv("CARECHAT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	creds := NewCredentialStore(cfg.SecurityMethod, cfg.SSHKeyPath)
	if pass := os.Getenv("CARECHAT_SSH_PASSPHRASE"); pass != "" {
		creds.SetPassphrase(pass)
	}
	if err := creds.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = creds

	return cfg, nil
}
