package storage

import (
	"errors"
	"fmt"

	"carechat/config"
)

// Adapter is the best-effort view of a Backend used by the session store.
// Get and Set never return errors or panic; persistence failures are logged
// and the caller carries on with its in-memory state.
type Adapter struct {
	backend Backend
}

func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Get returns the stored text and true, or "" and false when the key is
// absent or unreadable.
func (a *Adapter) Get(key string) (value string, ok bool) {
	if a == nil || a.backend == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			logf("[Storage] Get %q panicked: %v", key, r)
			value, ok = "", false
		}
	}()

	v, err := a.backend.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", false
	}
	if err != nil {
		logf("[Storage] Get %q failed: %v", key, err)
		return "", false
	}
	return v, true
}

// Set stores value under key and reports whether the write succeeded.
func (a *Adapter) Set(key, value string) (ok bool) {
	if a == nil || a.backend == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			logf("[Storage] Set %q panicked: %v", key, r)
			ok = false
		}
	}()

	if err := a.backend.Set(key, value); err != nil {
		logf("[Storage] Set %q failed: %v", key, err)
		return false
	}
	return true
}

// Close releases the underlying backend.
func (a *Adapter) Close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	if err := a.backend.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

func logf(format string, args ...any) {
	if config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
