package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"carechat/provider/testutil"
	"carechat/storage"
)

func TestRoundTrip(t *testing.T) {
	backend := storage.NewMemoryBackend()

	h := newHarness(t, backend)
	h.client.StreamFunc = testutil.ScriptedStream("Rest and fluids.")
	if err := h.store.SendMessage(context.Background(), "How do I treat a cold?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.store.StartNewSession()
	h.store.RenameSession(h.store.CurrentSessionID(), "Second")
	if err := h.store.SetModel("mixtral-8x7b-32768"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	h.store.SwitchSession(h.store.Sessions()[1].ID)

	want := h.store.Sessions()
	wantCurrent := h.store.CurrentSessionID()
	h.store.Close()

	reloaded := newHarness(t, backend)
	got := reloaded.store.Sessions()

	if len(got) != len(want) {
		t.Fatalf("sessions: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Title != want[i].Title || got[i].Model != want[i].Model {
			t.Errorf("session %d: got %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].UpdatedAt.Equal(want[i].UpdatedAt) {
			t.Errorf("session %d: UpdatedAt %v, want %v", i, got[i].UpdatedAt, want[i].UpdatedAt)
		}
		if len(got[i].Messages) != len(want[i].Messages) {
			t.Fatalf("session %d: %d messages, want %d", i, len(got[i].Messages), len(want[i].Messages))
		}
		for j := range want[i].Messages {
			g, w := got[i].Messages[j], want[i].Messages[j]
			if g.ID != w.ID || g.Role != w.Role || g.Content != w.Content || !g.CreatedAt.Equal(w.CreatedAt) {
				t.Errorf("session %d message %d: got %+v, want %+v", i, j, g, w)
			}
		}
	}
	if got := reloaded.store.CurrentSessionID(); got != wantCurrent {
		t.Errorf("current: got %q, want %q", got, wantCurrent)
	}
	if n := len(reloaded.notices.get()); n != 0 {
		t.Errorf("valid reload must not notify, got %+v", reloaded.notices.get())
	}
}

func TestStoredFormat(t *testing.T) {
	backend := storage.NewMemoryBackend()
	h := newHarness(t, backend)
	h.store.Flush()

	raw, err := backend.Get(KeySessions)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("stored sessions are not a JSON array: %v", err)
	}
	for _, key := range []string{"id", "title", "messages", "model", "createdAt", "updatedAt"} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("stored session lacks %q", key)
		}
	}
	if _, err := time.Parse(time.RFC3339, decoded[0]["createdAt"].(string)); err != nil {
		t.Errorf("createdAt is not RFC 3339: %v", err)
	}

	pointer, err := backend.Get(KeyCurrentSession)
	if err != nil {
		t.Fatalf("Get pointer: %v", err)
	}
	if pointer != h.store.CurrentSessionID() {
		t.Errorf("pointer: got %q, want %q", pointer, h.store.CurrentSessionID())
	}
}

func TestLoadRejectsMalformedCollections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{oops"},
		{name: "empty string", raw: ""},
		{name: "null", raw: "null"},
		{name: "object", raw: `{"id":"a"}`},
		{name: "empty array", raw: "[]"},
		{name: "missing session id", raw: `[{"title":"x","messages":[]}]`},
		{name: "duplicate session ids", raw: `[{"id":"a"},{"id":"a"}]`},
		{name: "missing message id", raw: `[{"id":"a","messages":[{"role":"user","content":"hi"}]}]`},
		{name: "invalid role", raw: `[{"id":"a","messages":[{"id":"m","role":"robot","content":"hi"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := storage.NewMemoryBackend()
			backend.Set(KeySessions, tt.raw)
			backend.Set(KeyCurrentSession, "a")

			h := newHarness(t, backend)

			sessions := h.store.Sessions()
			if len(sessions) != 1 || sessions[0].Title != DefaultTitle || len(sessions[0].Messages) != 0 {
				t.Fatalf("expected a single default session, got %+v", sessions)
			}
			if h.store.CurrentSessionID() != sessions[0].ID {
				t.Error("current does not point at the default session")
			}
			notices := h.notices.get()
			if len(notices) != 1 || notices[0].Level != LevelInfo {
				t.Errorf("expected one info notice, got %+v", notices)
			}
		})
	}
}

func TestLoadRepairsCosmeticFields(t *testing.T) {
	raw := `[
		{"id":"a","title":"  ","model":"gpt-17","messages":[{"id":"m1","role":"user","content":"hi"}]},
		{"id":"b","title":"Kept","model":"gemma-7b-it","messages":[],"createdAt":"2024-01-02T03:04:05Z","updatedAt":"2024-01-02T03:04:05Z"}
	]`
	backend := storage.NewMemoryBackend()
	backend.Set(KeySessions, raw)
	backend.Set(KeyCurrentSession, "b")

	h := newHarness(t, backend)
	sessions := h.store.Sessions()

	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	a, b := sessions[0], sessions[1]
	if a.Title != DefaultTitle || a.Model != DefaultModel {
		t.Errorf("session a not repaired: %+v", a)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() || a.Messages[0].CreatedAt.IsZero() {
		t.Error("zero timestamps not repaired")
	}
	if b.Title != "Kept" || b.Model != "gemma-7b-it" {
		t.Errorf("session b changed: %+v", b)
	}
	if !b.CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("session b CreatedAt: %v", b.CreatedAt)
	}
	if got := h.store.CurrentSessionID(); got != "b" {
		t.Errorf("current: got %q, want b", got)
	}
	if n := len(h.notices.get()); n != 0 {
		t.Errorf("repairs must not notify, got %+v", h.notices.get())
	}
}

func TestLoadStalePointerFallsBackToFirst(t *testing.T) {
	tests := []struct {
		name    string
		pointer *string
	}{
		{name: "unknown id", pointer: ptr("gone")},
		{name: "empty id", pointer: ptr("")},
		{name: "missing key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := storage.NewMemoryBackend()
			backend.Set(KeySessions, `[{"id":"first"},{"id":"second"}]`)
			if tt.pointer != nil {
				backend.Set(KeyCurrentSession, *tt.pointer)
			}

			h := newHarness(t, backend)
			if got := h.store.CurrentSessionID(); got != "first" {
				t.Errorf("current: got %q, want first", got)
			}

			h.store.Flush()
			stored, _ := backend.Get(KeyCurrentSession)
			if stored != "first" {
				t.Errorf("repaired pointer not persisted: %q", stored)
			}
		})
	}
}

func TestDecodeSessions(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sessions, err := DecodeSessions(`[{"id":"x","messages":[{"id":"m","role":"system","content":"c"}]}]`, SupportedModels, DefaultModel, now)
	if err != nil {
		t.Fatalf("DecodeSessions: %v", err)
	}
	if !sessions[0].CreatedAt.Equal(now) || !sessions[0].UpdatedAt.Equal(now) {
		t.Errorf("timestamps: %+v", sessions[0])
	}
	if sessions[0].Messages[0].Role != RoleSystem {
		t.Errorf("role: got %q", sessions[0].Messages[0].Role)
	}
}

func ptr(s string) *string { return &s }
