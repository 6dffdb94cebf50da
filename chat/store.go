// Package chat owns CareChat's conversation state: the session collection,
// the active-session pointer, and the streaming exchange with the completion
// client.
//
// A Store is safe for concurrent use. Every command and every streaming
// callback runs under one mutex, so each is atomic with respect to the
// in-memory state. SendMessage is the only command that blocks; while it
// waits on the stream, other commands keep working.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carechat/config"
	"carechat/provider"
	"carechat/storage"
)

var (
	ErrGenerationInProgress = errors.New("a response is already being generated")
	ErrUnsupportedModel     = errors.New("unsupported model")
	ErrClosed               = errors.New("session store is closed")
)

// Options configures a Store. Zero values fall back to the defaults noted on
// each field.
type Options struct {
	Storage  *storage.Adapter // nil keeps everything in memory
	Client   provider.Client
	Notifier Notifier // nil discards notices

	DefaultModel    string   // DefaultModel
	SupportedModels []string // SupportedModels
	Temperature     float64  // DefaultTemperature

	NewID func() string    // uuid.NewString
	Now   func() time.Time // time.Now
}

type Store struct {
	client      provider.Client
	notifier    Notifier
	models      []string
	model       string
	temperature float64
	newID       func() string
	now         func() time.Time

	mu        sync.Mutex
	sessions  []*Session
	currentID string
	state     GenerationState
	gen       *generation
	closed    bool

	persist *persister

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSub     int
}

// generation is the in-flight exchange. Callbacks carry a pointer to the
// generation they belong to; once s.gen no longer points at it they are
// dropped.
type generation struct {
	sessionID string
	messageID string
	cancel    context.CancelFunc
	acc       strings.Builder
}

// New creates a Store and loads any persisted sessions from opts.Storage.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("chat: a completion client is required")
	}

	s := &Store{
		client:      opts.Client,
		notifier:    opts.Notifier,
		models:      opts.SupportedModels,
		model:       opts.DefaultModel,
		temperature: opts.Temperature,
		newID:       opts.NewID,
		now:         opts.Now,
		subscribers: make(map[int]func()),
	}
	if len(s.models) == 0 {
		s.models = SupportedModels
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if !slices.Contains(s.models, s.model) {
		logf("[Chat] Default model %q is not supported, using %q", s.model, s.models[0])
		s.model = s.models[0]
	}
	if s.temperature <= 0 {
		s.temperature = DefaultTemperature
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.persist = newPersister(opts.Storage, s.snapshot)

	notices := s.load()
	go s.persist.run()

	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}

	s.deliver(notices)
	return s, nil
}

// Close cancels any generation, writes the latest state and stops the
// persistence worker. The Store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.gen != nil {
		s.gen.cancel()
		s.gen = nil
		s.state = Idle
	}
	s.mu.Unlock()

	s.persist.stop()
	return nil
}

// Flush writes the current state synchronously.
func (s *Store) Flush() {
	s.persist.write()
}

// Subscribe registers fn to be called after every state change. It returns
// a function that removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// ===== Read surface =====

// Sessions returns copies of all sessions, most recent first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.clone()
	}
	return out
}

func (s *Store) CurrentSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().clone()
}

func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

func (s *Store) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != Idle
}

func (s *Store) State() GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GeneratingSessionID returns the id of the session receiving the in-flight
// reply, or "" when idle.
func (s *Store) GeneratingSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == nil {
		return ""
	}
	return s.gen.sessionID
}

func (s *Store) SupportedModels() []string {
	return append([]string(nil), s.models...)
}

// LastAssistantMessage returns the newest non-empty assistant reply of the
// current session.
func (s *Store) LastAssistantMessage() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.current().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content, true
		}
	}
	return "", false
}

// ===== Commands =====

// StartNewSession creates an empty session at the front of the collection
// and makes it current.
func (s *Store) StartNewSession() Session {
	s.mu.Lock()
	sess := s.newSession()
	s.sessions = append([]*Session{sess}, s.sessions...)
	s.currentID = sess.ID
	out := sess.clone()
	s.mu.Unlock()

	s.changed()
	return out
}

// SwitchSession makes id current. An unknown id falls back to the first
// session and reports it through the notifier.
func (s *Store) SwitchSession(id string) {
	var notices []Notice

	s.mu.Lock()
	if s.find(id) != nil {
		s.currentID = id
	} else {
		logf("[Chat] Switch to unknown session %q, falling back", id)
		s.currentID = ""
		s.ensureCurrent()
		notices = append(notices, fallbackNotice)
	}
	s.mu.Unlock()

	s.changed()
	s.deliver(notices)
}

// DeleteSession removes a session. Deleting the session that is receiving a
// reply stops the generation. The collection never becomes empty.
func (s *Store) DeleteSession(id string) {
	var notices []Notice

	s.mu.Lock()
	idx := s.index(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	if s.gen != nil && s.gen.sessionID == id {
		s.stopLocked()
	}

	s.sessions = slices.Delete(s.sessions, idx, idx+1)
	if len(s.sessions) == 0 {
		sess := s.newSession()
		s.sessions = []*Session{sess}
		s.currentID = sess.ID
		notices = append(notices, fallbackNotice)
	} else if s.currentID == id {
		s.currentID = s.sessions[0].ID
	}
	s.mu.Unlock()

	s.changed()
	s.deliver(notices)
}

// RenameSession sets a session's title. A blank title restores the default.
// Unknown ids are ignored.
func (s *Store) RenameSession(id, title string) {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	sess.Title = title
	sess.UpdatedAt = s.now()
	s.mu.Unlock()

	s.changed()
}

// ClearMessages empties the current session and resets its title.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	sess := s.current()
	if s.gen != nil && s.gen.sessionID == sess.ID {
		s.stopLocked()
	}
	sess.Messages = []Message{}
	sess.Title = DefaultTitle
	sess.UpdatedAt = s.now()
	s.mu.Unlock()

	s.changed()
}

// SetModel sets the model of the current session.
func (s *Store) SetModel(model string) error {
	if !slices.Contains(s.models, model) {
		return ErrUnsupportedModel
	}

	s.mu.Lock()
	sess := s.current()
	sess.Model = model
	sess.UpdatedAt = s.now()
	s.mu.Unlock()

	s.changed()
	return nil
}

// StopGeneration cancels the in-flight reply. Partial content is kept and no
// error is recorded. It is a no-op when idle.
func (s *Store) StopGeneration() {
	s.mu.Lock()
	if s.gen == nil {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.mu.Unlock()

	s.changed()
}

// stopLocked cancels the active generation. Caller holds s.mu.
func (s *Store) stopLocked() {
	s.gen.cancel()
	s.gen = nil
	s.state = Idle
}

// ===== Internals =====

func (s *Store) find(id string) *Session {
	if i := s.index(id); i >= 0 {
		return s.sessions[i]
	}
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.sessions, func(sess *Session) bool { return sess.ID == id })
}

// current returns the active session, repairing the pointer first if needed.
func (s *Store) current() *Session {
	s.ensureCurrent()
	return s.find(s.currentID)
}

// ensureCurrent makes currentID resolve, creating a session when the
// collection is empty.
func (s *Store) ensureCurrent() {
	if s.find(s.currentID) != nil {
		return
	}
	if len(s.sessions) == 0 {
		s.sessions = []*Session{s.newSession()}
	}
	s.currentID = s.sessions[0].ID
}

func (s *Store) newSession() *Session {
	now := s.now()
	return &Session{
		ID:        s.uniqueSessionID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		Model:     s.model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Store) uniqueSessionID() string {
	for {
		id := s.newID()
		if id != "" && s.find(id) == nil {
			return id
		}
		logf("[Chat] Session id %q collides, retrying", id)
	}
}

func (s *Store) uniqueMessageID(sess *Session) string {
	for {
		id := s.newID()
		if id != "" && sess.message(id) == nil {
			return id
		}
	}
}

// changed schedules a persistence write and tells subscribers. Called
// without s.mu held.
func (s *Store) changed() {
	s.persist.schedule()

	s.subMu.Lock()
	subs := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (s *Store) deliver(notices []Notice) {
	if s.notifier == nil {
		return
	}
	for _, n := range notices {
		s.notifier.Notify(n)
	}
}

func logf(format string, args ...any) {
	if config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
