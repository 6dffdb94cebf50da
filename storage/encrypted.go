package storage

import (
	"encoding/base64"
	"fmt"

	"carechat/config"
)

// EncryptedBackend seals values with the SSH-derived AES key before handing
// them to the wrapped backend. Stored values are base64 text so every
// backend can keep them as strings.
type EncryptedBackend struct {
	inner Backend
	enc   *config.EncryptionManager
}

func NewEncryptedBackend(inner Backend, enc *config.EncryptionManager) *EncryptedBackend {
	return &EncryptedBackend{inner: inner, enc: enc}
}

func (e *EncryptedBackend) Get(key string) (string, error) {
	raw, err := e.inner.Get(key)
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", key, err)
	}
	plain, err := e.enc.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return string(plain), nil
}

func (e *EncryptedBackend) Set(key, value string) error {
	sealed, err := e.enc.Encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return e.inner.Set(key, base64.StdEncoding.EncodeToString(sealed))
}

func (e *EncryptedBackend) Close() error {
	return e.inner.Close()
}
