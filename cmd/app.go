package cmd

import (
	"context"
	"fmt"

	"carechat/chat"
	"carechat/config"
	"carechat/provider"
	"carechat/storage"
)

// app bundles what every command needs to reach the session store.
type app struct {
	cfg     *config.Config
	client  provider.Client
	store   *chat.Store
	storage *storage.Adapter
}

// loadConfig reads the configuration and turns on debug logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.InitDebugLog(cfg.DataDir(), verbose)
	return cfg, nil
}

// openApp loads config, connects the configured provider and opens the
// session store. notifier may be nil.
func openApp(ctx context.Context, notifier chat.Notifier) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := provider.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	adapter := storage.NewAdapter(backend)
	active := cfg.ActiveProvider()
	store, err := chat.New(ctx, chat.Options{
		Storage:         adapter,
		Client:          client,
		Notifier:        notifier,
		DefaultModel:    cfg.DefaultModel,
		SupportedModels: active.Models,
		Temperature:     cfg.Temperature,
	})
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[CMD] Opened store: provider=%s backend=%s models=%v", active.ID, cfg.StorageBackend, active.Models)
	}

	return &app{cfg: cfg, client: client, store: store, storage: adapter}, nil
}

// Close writes pending changes and releases the backend.
func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		return err
	}
	return a.storage.Close()
}
