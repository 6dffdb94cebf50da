package storage

import (
	"errors"
	"testing"
)

type panicBackend struct{}

func (panicBackend) Get(key string) (string, error) { panic("quota exceeded") }
func (panicBackend) Set(key, value string) error    { panic("quota exceeded") }
func (panicBackend) Close() error                   { return nil }

type brokenBackend struct{}

func (brokenBackend) Get(key string) (string, error) { return "", errors.New("disk on fire") }
func (brokenBackend) Set(key, value string) error    { return errors.New("disk on fire") }
func (brokenBackend) Close() error                   { return nil }

func TestAdapterGetSet(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	if _, ok := a.Get("chat-sessions"); ok {
		t.Fatal("expected missing key to be absent")
	}

	if !a.Set("chat-sessions", "[]") {
		t.Fatal("expected Set to succeed")
	}

	got, ok := a.Get("chat-sessions")
	if !ok {
		t.Fatal("expected key to be present after Set")
	}
	if got != "[]" {
		t.Errorf("Get: got %q, want %q", got, "[]")
	}
}

func TestAdapterSwallowsFailures(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
	}{
		{name: "backend error", backend: brokenBackend{}},
		{name: "backend panic", backend: panicBackend{}},
		{name: "write failure", backend: &MemoryBackend{data: map[string]string{}, FailWrites: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.backend)

			if a.Set("k", "v") {
				t.Error("expected Set to report failure")
			}
			if _, ok := a.Get("k"); ok {
				t.Error("expected Get to report absent")
			}
		})
	}
}

func TestNilAdapter(t *testing.T) {
	var a *Adapter

	if a.Set("k", "v") {
		t.Error("nil adapter must not report a successful write")
	}
	if _, ok := a.Get("k"); ok {
		t.Error("nil adapter must not report a value")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
}
