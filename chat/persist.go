package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"carechat/storage"
)

// Persistence keys.
const (
	KeySessions       = "chat-sessions"
	KeyCurrentSession = "current-session-id"
)

// persister writes the collection in the background. Schedules are
// coalesced: however many arrive while a write is running, one more write
// follows, and it always takes a fresh snapshot.
type persister struct {
	adapter  *storage.Adapter
	snapshot func() (sessions []byte, currentID string, err error)

	kick chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once

	writeMu     sync.Mutex
	lastPointer string
}

func newPersister(adapter *storage.Adapter, snapshot func() ([]byte, string, error)) *persister {
	return &persister{
		adapter:  adapter,
		snapshot: snapshot,
		kick:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.kick:
			p.write()
		case <-p.quit:
			p.write()
			return
		}
	}
}

func (p *persister) schedule() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *persister) stop() {
	p.once.Do(func() { close(p.quit) })
	<-p.done
}

// write stores the latest snapshot. The pointer key is written only when it
// changed since the last successful write.
func (p *persister) write() {
	if p.adapter == nil {
		return
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	data, currentID, err := p.snapshot()
	if err != nil {
		logf("[Chat] Failed to serialize sessions: %v", err)
		return
	}

	if !p.adapter.Set(KeySessions, string(data)) {
		logf("[Chat] Sessions not saved; keeping in-memory state")
	}
	if currentID != p.lastPointer && p.adapter.Set(KeyCurrentSession, currentID) {
		p.lastPointer = currentID
	}
}

// snapshot serializes the collection and pointer under the store lock.
func (s *Store) snapshot() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.sessions)
	if err != nil {
		return nil, "", err
	}
	return data, s.currentID, nil
}

// load installs the persisted collection, or a fresh default session when
// nothing valid is stored. Runs before the Store is shared.
func (s *Store) load() []Notice {
	var notices []Notice
	adapter := s.persist.adapter

	raw, found := "", false
	if adapter != nil {
		raw, found = adapter.Get(KeySessions)
	}

	sessions, err := DecodeSessions(raw, s.models, s.model, s.now())
	switch {
	case !found:
		s.sessions = []*Session{s.newSession()}
	case err != nil:
		logf("[Chat] Discarding stored sessions: %v", err)
		s.sessions = []*Session{s.newSession()}
		notices = append(notices, fallbackNotice)
	default:
		s.sessions = sessions
	}

	if adapter != nil {
		if id, ok := adapter.Get(KeyCurrentSession); ok {
			s.currentID = id
			s.persist.lastPointer = id
		}
	}
	if s.find(s.currentID) == nil {
		if s.currentID != "" {
			logf("[Chat] Stored current session %q not found, using first session", s.currentID)
		}
		s.currentID = s.sessions[0].ID
	}

	if !found || err != nil || s.persist.lastPointer != s.currentID {
		s.persist.schedule()
	}
	return notices
}

var errEmptyCollection = errors.New("no sessions")

// DecodeSessions parses a stored collection.
//
// The structure must be sound: a non-empty array, unique non-empty session
// ids, and messages with non-empty ids and known roles. Anything else is an
// error. Cosmetic fields are repaired in place: a blank title becomes
// DefaultTitle, an unsupported model becomes defaultModel and zero timestamps
// become now.
func DecodeSessions(raw string, supported []string, defaultModel string, now time.Time) ([]*Session, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errEmptyCollection
	}

	var sessions []*Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, errEmptyCollection
	}

	seen := make(map[string]bool, len(sessions))
	for i, sess := range sessions {
		if sess == nil || sess.ID == "" {
			return nil, fmt.Errorf("session %d has no id", i)
		}
		if seen[sess.ID] {
			return nil, fmt.Errorf("duplicate session id %q", sess.ID)
		}
		seen[sess.ID] = true

		for j, m := range sess.Messages {
			if m.ID == "" {
				return nil, fmt.Errorf("session %q: message %d has no id", sess.ID, j)
			}
			if !m.Role.Valid() {
				return nil, fmt.Errorf("session %q: message %q has invalid role %q", sess.ID, m.ID, m.Role)
			}
			if m.CreatedAt.IsZero() {
				sess.Messages[j].CreatedAt = now
			}
		}

		if sess.Messages == nil {
			sess.Messages = []Message{}
		}
		if strings.TrimSpace(sess.Title) == "" {
			sess.Title = DefaultTitle
		}
		if !slices.Contains(supported, sess.Model) {
			sess.Model = defaultModel
		}
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = now
		}
		if sess.UpdatedAt.IsZero() {
			sess.UpdatedAt = sess.CreatedAt
		}
	}

	return sessions, nil
}
