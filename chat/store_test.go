package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"carechat/provider"
	"carechat/provider/testutil"
	"carechat/storage"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) get() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// steppingClock advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type harness struct {
	store   *Store
	client  *testutil.MockClient
	backend *storage.MemoryBackend
	adapter *storage.Adapter
	notices *noticeRecorder
	stream  *testutil.StreamController
}

func newHarness(t *testing.T, backend *storage.MemoryBackend) *harness {
	t.Helper()
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}

	h := &harness{
		client:  testutil.NewMockClient(),
		backend: backend,
		adapter: storage.NewAdapter(backend),
		notices: &noticeRecorder{},
		stream:  testutil.NewStreamController(),
	}
	h.client.StreamFunc = h.stream.Func()

	store, err := New(context.Background(), Options{
		Storage:  h.adapter,
		Client:   h.client,
		Notifier: h.notices,
		NewID:    sequentialIDs(),
		Now:      steppingClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	h.store = store
	return h
}

// send starts SendMessage in the background and waits for the stream to
// open. The returned channel yields SendMessage's result.
func (h *harness) send(t *testing.T, content string) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.store.SendMessage(context.Background(), content) }()
	if !h.stream.WaitStarted(2 * time.Second) {
		t.Fatal("stream did not start")
	}
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SendMessage did not return")
	}
}

func assertValid(t *testing.T, s *Store) {
	t.Helper()
	sessions := s.Sessions()
	if len(sessions) == 0 {
		t.Fatal("collection is empty")
	}
	current := s.CurrentSessionID()
	found := false
	seen := map[string]bool{}
	for _, sess := range sessions {
		if seen[sess.ID] {
			t.Fatalf("duplicate session id %q", sess.ID)
		}
		seen[sess.ID] = true
		if sess.ID == current {
			found = true
		}
	}
	if !found {
		t.Fatalf("current session %q does not resolve", current)
	}
}

func TestNewStoreFirstRun(t *testing.T) {
	h := newHarness(t, nil)

	sessions := h.store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.Title != DefaultTitle || s.Model != DefaultModel || len(s.Messages) != 0 {
		t.Errorf("unexpected default session: %+v", s)
	}
	if h.store.CurrentSessionID() != s.ID {
		t.Errorf("current: got %q, want %q", h.store.CurrentSessionID(), s.ID)
	}
	if h.store.State() != Idle {
		t.Errorf("state: got %v, want idle", h.store.State())
	}
	if n := len(h.notices.get()); n != 0 {
		t.Errorf("first run must not notify, got %d notices", n)
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("expected error without a client")
	}
}

func TestStartNewSessionPrepends(t *testing.T) {
	h := newHarness(t, nil)
	first := h.store.CurrentSessionID()

	created := h.store.StartNewSession()

	sessions := h.store.Sessions()
	if len(sessions) != 2 || sessions[0].ID != created.ID || sessions[1].ID != first {
		t.Fatalf("expected new session first, got %v", ids(sessions))
	}
	if h.store.CurrentSessionID() != created.ID {
		t.Error("new session is not current")
	}
}

func TestDeleteSessionNeverEmpty(t *testing.T) {
	tests := []struct {
		name    string
		extra   int
		deletes func(s *Store) []string
	}{
		{
			name:  "delete the only session",
			extra: 0,
			deletes: func(s *Store) []string {
				return []string{s.CurrentSessionID()}
			},
		},
		{
			name:  "delete all in order",
			extra: 3,
			deletes: func(s *Store) []string {
				return ids(s.Sessions())
			},
		},
		{
			name:  "delete current repeatedly",
			extra: 2,
			deletes: func(s *Store) []string {
				return []string{"current", "current", "current", "current", "current"}
			},
		},
		{
			name:  "delete unknown id",
			extra: 1,
			deletes: func(s *Store) []string {
				return []string{"nope", ""}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			for i := 0; i < tt.extra; i++ {
				h.store.StartNewSession()
			}

			for _, id := range tt.deletes(h.store) {
				if id == "current" {
					id = h.store.CurrentSessionID()
				}
				h.store.DeleteSession(id)
				assertValid(t, h.store)
			}
		})
	}
}

func TestDeleteLastSessionNotifies(t *testing.T) {
	h := newHarness(t, nil)
	old := h.store.CurrentSessionID()

	h.store.DeleteSession(old)

	if h.store.CurrentSessionID() == old {
		t.Error("deleted session is still current")
	}
	notices := h.notices.get()
	if len(notices) != 1 || notices[0].Level != LevelInfo {
		t.Errorf("expected one info notice, got %+v", notices)
	}
}

func TestDeleteCurrentMovesToFirst(t *testing.T) {
	h := newHarness(t, nil)
	h.store.StartNewSession()
	h.store.StartNewSession()
	sessions := h.store.Sessions()

	h.store.SwitchSession(sessions[1].ID)
	h.store.DeleteSession(sessions[1].ID)

	if got := h.store.CurrentSessionID(); got != sessions[0].ID {
		t.Errorf("current: got %q, want first session %q", got, sessions[0].ID)
	}

	h.store.DeleteSession(sessions[2].ID)
	if got := h.store.CurrentSessionID(); got != sessions[0].ID {
		t.Errorf("deleting a non-current session moved the pointer to %q", got)
	}
}

func TestSwitchSession(t *testing.T) {
	h := newHarness(t, nil)
	older := h.store.CurrentSessionID()
	newer := h.store.StartNewSession().ID

	h.store.SwitchSession(older)
	if got := h.store.CurrentSessionID(); got != older {
		t.Fatalf("current: got %q, want %q", got, older)
	}
	if n := len(h.notices.get()); n != 0 {
		t.Errorf("valid switch must not notify, got %d", n)
	}

	h.store.SwitchSession("does-not-exist")
	if got := h.store.CurrentSessionID(); got != newer {
		t.Errorf("fallback: got %q, want first session %q", got, newer)
	}
	notices := h.notices.get()
	if len(notices) != 1 || notices[0].Message != "Switched to fallback session" {
		t.Errorf("expected fallback notice, got %+v", notices)
	}
	assertValid(t, h.store)
}

func TestSendMessageIgnoresBlankContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t "} {
		t.Run(fmt.Sprintf("%q", content), func(t *testing.T) {
			h := newHarness(t, nil)
			before := h.store.CurrentSession()

			if err := h.store.SendMessage(context.Background(), content); err != nil {
				t.Fatalf("SendMessage: %v", err)
			}

			after := h.store.CurrentSession()
			if len(after.Messages) != 0 || after.Title != before.Title {
				t.Errorf("session changed: %+v", after)
			}
			if h.store.IsGenerating() {
				t.Error("blank content started a generation")
			}
			if n := len(h.client.Requests()); n != 0 {
				t.Errorf("client received %d requests", n)
			}
		})
	}
}

func TestSendMessageStreamsIntoPlaceholder(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "Hi there")

	if !h.store.IsGenerating() || h.store.State() != Streaming {
		t.Fatalf("expected streaming, got %v", h.store.State())
	}

	sess := h.store.CurrentSession()
	if len(sess.Messages) != 2 {
		t.Fatalf("expected user message and placeholder, got %d messages", len(sess.Messages))
	}
	placeholder := sess.Messages[1]
	if placeholder.Role != RoleAssistant || placeholder.Content != "" {
		t.Fatalf("unexpected placeholder: %+v", placeholder)
	}

	var seen []string
	for _, d := range []string{"Hel", "lo", " world"} {
		h.stream.Delta(d)
		msgs := h.store.CurrentSession().Messages
		if len(msgs) != 2 || msgs[1].ID != placeholder.ID {
			t.Fatalf("delta appended a message instead of updating the placeholder")
		}
		seen = append(seen, msgs[1].Content)
	}
	h.stream.Complete()
	waitDone(t, done)

	want := []string{"Hel", "Hello", "Hello world"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("after delta %d: got %q, want %q", i, seen[i], want[i])
		}
	}

	final := h.store.CurrentSession().Messages[1]
	if final.Content != "Hello world" {
		t.Errorf("final content: got %q", final.Content)
	}
	if h.store.IsGenerating() {
		t.Error("still generating after completion")
	}

	reqs := h.client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if !req.Stream || req.Temperature != DefaultTemperature || req.Model != DefaultModel {
		t.Errorf("request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0] != (provider.Message{Role: "user", Content: "Hi there"}) {
		t.Errorf("history: got %+v", req.Messages)
	}
}

func TestSendMessageHistoryIsChronological(t *testing.T) {
	h := newHarness(t, nil)
	h.client.StreamFunc = testutil.ScriptedStream("Answer one")
	if err := h.store.SendMessage(context.Background(), "Question one"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.client.StreamFunc = testutil.ScriptedStream("Answer two")
	if err := h.store.SendMessage(context.Background(), "Question two"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	reqs := h.client.Requests()
	want := []provider.Message{
		{Role: "user", Content: "Question one"},
		{Role: "assistant", Content: "Answer one"},
		{Role: "user", Content: "Question two"},
	}
	got := reqs[1].Messages
	if len(got) != len(want) {
		t.Fatalf("history: got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStopGenerationKeepsPartialContent(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "Tell me about migraines")

	h.stream.Delta("Migraines are ")
	h.stream.Delta("recurring")
	h.store.StopGeneration()
	waitDone(t, done)

	if h.store.IsGenerating() {
		t.Error("still generating after stop")
	}
	reply := h.store.CurrentSession().Messages[1]
	if reply.Content != "Migraines are recurring" {
		t.Errorf("partial content: got %q", reply.Content)
	}

	// A client that keeps delivering after cancellation must not change
	// anything.
	cb := h.stream.Callbacks()
	cb.OnDelta(" late")
	cb.OnError(errors.New("late failure"))
	cb.OnComplete()

	reply = h.store.CurrentSession().Messages[1]
	if reply.Content != "Migraines are recurring" || strings.Contains(reply.Content, "Error") {
		t.Errorf("late callbacks changed the reply: %q", reply.Content)
	}
	if n := len(h.notices.get()); n != 0 {
		t.Errorf("cancellation must not notify, got %+v", h.notices.get())
	}

	h.store.StopGeneration() // no-op when idle
}

func TestStreamErrorAnnotatesPartialContent(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "Is ibuprofen safe?")

	h.stream.Delta("Generally, ")
	h.stream.Fail(&provider.APIError{StatusCode: 503, Message: "Service unavailable"})
	waitDone(t, done)

	reply := h.store.CurrentSession().Messages[1]
	if reply.Content != "Generally, "+ErrorAnnotation {
		t.Errorf("content: got %q", reply.Content)
	}
	if h.store.IsGenerating() {
		t.Error("still generating after error")
	}

	notices := h.notices.get()
	if len(notices) != 1 || notices[0].Level != LevelError || !strings.Contains(notices[0].Message, "Service unavailable") {
		t.Errorf("expected one error notice, got %+v", notices)
	}
}

func TestSendMessageWhileGeneratingIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "first")

	before := h.store.CurrentSession()
	err := h.store.SendMessage(context.Background(), "second")
	if !errors.Is(err, ErrGenerationInProgress) {
		t.Fatalf("expected ErrGenerationInProgress, got %v", err)
	}
	after := h.store.CurrentSession()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("rejected send changed messages: %d -> %d", len(before.Messages), len(after.Messages))
	}

	h.stream.Complete()
	waitDone(t, done)
}

func TestPlaceholderLocatedByIDAcrossMutations(t *testing.T) {
	h := newHarness(t, nil)
	streaming := h.store.CurrentSessionID()
	done := h.send(t, "What helps a sore throat?")

	h.stream.Delta("Warm ")

	// The user moves on while the reply streams.
	other := h.store.StartNewSession()
	h.store.RenameSession(streaming, "Sore throat")
	h.stream.Delta("tea.")
	h.stream.Complete()
	waitDone(t, done)

	if got := h.store.CurrentSessionID(); got != other.ID {
		t.Errorf("current: got %q, want %q", got, other.ID)
	}
	if n := len(h.store.CurrentSession().Messages); n != 0 {
		t.Errorf("new session received %d messages", n)
	}

	var orig Session
	for _, s := range h.store.Sessions() {
		if s.ID == streaming {
			orig = s
		}
	}
	if orig.Title != "Sore throat" {
		t.Errorf("title: got %q", orig.Title)
	}
	if len(orig.Messages) != 2 || orig.Messages[1].Content != "Warm tea." {
		t.Errorf("reply: got %+v", orig.Messages)
	}
}

func TestDeleteGeneratingSessionStopsGeneration(t *testing.T) {
	h := newHarness(t, nil)
	h.store.StartNewSession()
	target := h.store.CurrentSessionID()
	done := h.send(t, "hello")
	h.stream.Delta("partial")

	h.store.DeleteSession(target)
	waitDone(t, done)

	if h.store.IsGenerating() {
		t.Error("still generating after deleting the session")
	}
	assertValid(t, h.store)
	for _, s := range h.store.Sessions() {
		if s.ID == target {
			t.Error("session was not deleted")
		}
	}
	if n := len(h.notices.get()); n != 0 {
		t.Errorf("expected no notices, got %+v", h.notices.get())
	}
}

func TestClearMessages(t *testing.T) {
	h := newHarness(t, nil)
	h.client.StreamFunc = testutil.ScriptedStream("ok")
	if err := h.store.SendMessage(context.Background(), "A question long enough to need a title"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	before := h.store.CurrentSession()

	h.store.ClearMessages()

	after := h.store.CurrentSession()
	if len(after.Messages) != 0 || after.Title != DefaultTitle {
		t.Errorf("after clear: %+v", after)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("UpdatedAt not refreshed")
	}
}

func TestClearMessagesStopsGeneration(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "hello")

	h.store.ClearMessages()
	waitDone(t, done)

	if h.store.IsGenerating() {
		t.Error("still generating after clear")
	}
	if n := len(h.store.CurrentSession().Messages); n != 0 {
		t.Errorf("expected no messages, got %d", n)
	}
}

func TestRenameSession(t *testing.T) {
	h := newHarness(t, nil)
	id := h.store.CurrentSessionID()
	before := h.store.CurrentSession()

	h.store.RenameSession(id, "  Allergy questions ")
	after := h.store.CurrentSession()
	if after.Title != "Allergy questions" {
		t.Errorf("title: got %q", after.Title)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("UpdatedAt not refreshed")
	}

	h.store.RenameSession("missing", "x")
	assertValid(t, h.store)

	h.store.RenameSession(id, "   ")
	if got := h.store.CurrentSession().Title; got != DefaultTitle {
		t.Errorf("blank rename: got %q", got)
	}
}

func TestSetModel(t *testing.T) {
	h := newHarness(t, nil)
	before := h.store.CurrentSession()

	if err := h.store.SetModel("gemma-7b-it"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	after := h.store.CurrentSession()
	if after.Model != "gemma-7b-it" || !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("after SetModel: %+v", after)
	}

	if err := h.store.SetModel("gpt-17"); !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("expected ErrUnsupportedModel, got %v", err)
	}
	if got := h.store.CurrentSession().Model; got != "gemma-7b-it" {
		t.Errorf("rejected model changed the session: %q", got)
	}
}

func TestFirstMessageTitle(t *testing.T) {
	const question = "What are the symptoms of the flu and how long do they last?"

	tests := []struct {
		name     string
		rename   string
		messages []string
		want     string
	}{
		{name: "long first message", messages: []string{question}, want: question[:30] + "..."},
		{name: "short first message", messages: []string{"Hello"}, want: "Hello"},
		{name: "second message keeps title", messages: []string{"First", question}, want: "First"},
		{name: "renamed session keeps title", rename: "My chat", messages: []string{question}, want: "My chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.client.StreamFunc = testutil.ScriptedStream("ok")
			if tt.rename != "" {
				h.store.RenameSession(h.store.CurrentSessionID(), tt.rename)
			}
			for _, m := range tt.messages {
				if err := h.store.SendMessage(context.Background(), m); err != nil {
					t.Fatalf("SendMessage: %v", err)
				}
			}
			if got := h.store.CurrentSession().Title; got != tt.want {
				t.Errorf("title: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParentContextCancellation(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.store.SendMessage(ctx, "hello") }()
	if !h.stream.WaitStarted(2 * time.Second) {
		t.Fatal("stream did not start")
	}
	h.stream.Delta("par")
	cancel()
	waitDone(t, done)

	if h.store.IsGenerating() {
		t.Error("still generating after context cancellation")
	}
	if got := h.store.CurrentSession().Messages[1].Content; got != "par" {
		t.Errorf("content: got %q", got)
	}
}

func TestUniqueSessionIDs(t *testing.T) {
	seq := []string{"a", "a", "a", "b", "b", "c"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := seq[0]
		if len(seq) > 1 {
			seq = seq[1:]
		}
		return id
	}

	store, err := New(context.Background(), Options{Client: testutil.NewMockClient(), NewID: next})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	store.StartNewSession()
	store.StartNewSession()
	assertValid(t, store)
	if got := ids(store.Sessions()); len(got) != 3 {
		t.Errorf("expected 3 sessions, got %v", got)
	}
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	backend := storage.NewMemoryBackend()
	backend.FailWrites = true
	h := newHarness(t, backend)

	h.store.StartNewSession()
	h.store.RenameSession(h.store.CurrentSessionID(), "Still here")
	h.store.Flush()

	if got := h.store.CurrentSession().Title; got != "Still here" {
		t.Errorf("title: got %q", got)
	}
	if n := len(h.store.Sessions()); n != 2 {
		t.Errorf("expected 2 sessions, got %d", n)
	}
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	calls := 0
	unsubscribe := h.store.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	h.store.StartNewSession()
	h.store.RenameSession(h.store.CurrentSessionID(), "x")
	unsubscribe()
	h.store.StartNewSession()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("subscriber calls: got %d, want 2", calls)
	}
}

func TestSearchSessions(t *testing.T) {
	h := newHarness(t, nil)
	h.store.RenameSession(h.store.CurrentSessionID(), "Flu symptoms")
	h.store.StartNewSession()
	h.store.RenameSession(h.store.CurrentSessionID(), "Knee pain after running")

	if got := h.store.SearchSessions(""); len(got) != 2 {
		t.Errorf("empty query: got %d sessions", len(got))
	}

	got := h.store.SearchSessions("knee")
	if len(got) != 1 || got[0].Title != "Knee pain after running" {
		t.Errorf("search knee: got %v", titles(got))
	}

	if got := h.store.SearchSessions("zzz"); len(got) != 0 {
		t.Errorf("search zzz: got %v", titles(got))
	}
}

func TestLastAssistantMessage(t *testing.T) {
	h := newHarness(t, nil)
	if _, ok := h.store.LastAssistantMessage(); ok {
		t.Error("expected no reply in an empty session")
	}

	h.client.StreamFunc = testutil.ScriptedStream("Stay hydrated.")
	if err := h.store.SendMessage(context.Background(), "Tips?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	got, ok := h.store.LastAssistantMessage()
	if !ok || got != "Stay hydrated." {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestCloseStopsGeneration(t *testing.T) {
	h := newHarness(t, nil)
	done := h.send(t, "hello")

	h.store.Close()
	waitDone(t, done)

	if err := h.store.SendMessage(context.Background(), "again"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func ids(sessions []Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func titles(sessions []Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.Title
	}
	return out
}
