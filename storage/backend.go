// Package storage is the persistent key/value layer behind the session store.
//
// A Backend does the raw I/O and reports errors. The Adapter wraps a Backend
// and never lets a failure cross into the caller: reads degrade to "absent",
// writes report false, and everything is written to the debug log.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"carechat/config"
)

// ErrNotFound is returned by Backend.Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a string key/value store scoped to one user data directory.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the backend configured for this data directory. When
// encryptSessions is set, values are sealed with the credential store's SSH
// derived key before they reach disk.
func Open(cfg *config.Config) (Backend, error) {
	dataDir := cfg.DataDir()

	var b Backend
	var err error
	switch cfg.StorageBackend {
	case BackendFile, "":
		b, err = NewFileBackend(filepath.Join(dataDir, "store"))
	case BackendSQLite:
		b, err = NewSQLiteBackend(filepath.Join(dataDir, "store.db"))
	case BackendMemory:
		b = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.EncryptSessions {
		return b, nil
	}

	if cfg.CredentialStore == nil {
		_ = b.Close()
		return nil, fmt.Errorf("session encryption requires a credential store")
	}
	mgr, err := cfg.CredentialStore.EncryptionManager()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to enable session encryption: %w", err)
	}
	return NewEncryptedBackend(b, mgr), nil
}
