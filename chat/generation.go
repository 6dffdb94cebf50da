package chat

import (
	"context"
	"strings"

	"carechat/provider"
)

// SendMessage appends content as a user message to the current session and
// streams the assistant's reply into a placeholder message. It blocks until
// the reply completes, fails, or is stopped.
//
// Whitespace-only content is ignored. While another reply is in flight it
// returns ErrGenerationInProgress and changes nothing. Stream failures are
// not returned: they are annotated onto the reply and sent to the Notifier.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Idle {
		s.mu.Unlock()
		return ErrGenerationInProgress
	}

	sess := s.current()
	now := s.now()

	firstMessage := len(sess.Messages) == 0
	sess.Messages = append(sess.Messages, Message{
		ID:        s.uniqueMessageID(sess),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: now,
	})
	if firstMessage && sess.Title == DefaultTitle {
		sess.Title = DeriveTitle(content)
	}
	sess.UpdatedAt = now
	s.state = Sending

	history := make([]provider.Message, len(sess.Messages))
	for i, m := range sess.Messages {
		history[i] = provider.Message{Role: string(m.Role), Content: m.Content}
	}

	placeholder := Message{
		ID:        s.uniqueMessageID(sess),
		Role:      RoleAssistant,
		Content:   "",
		CreatedAt: now,
	}
	sess.Messages = append(sess.Messages, placeholder)

	streamCtx, cancel := context.WithCancel(ctx)
	g := &generation{
		sessionID: sess.ID,
		messageID: placeholder.ID,
		cancel:    cancel,
	}
	s.gen = g
	s.state = Streaming

	req := provider.Request{
		Messages:    history,
		Model:       sess.Model,
		Temperature: s.temperature,
		Stream:      true,
	}
	s.mu.Unlock()
	s.changed()

	logf("[Chat] Streaming reply for session %s with %s (%d messages)", g.sessionID, req.Model, len(history))

	s.client.Stream(streamCtx, req, provider.Callbacks{
		OnDelta:    func(text string) { s.onDelta(g, text) },
		OnComplete: func() { s.finish(g, nil) },
		OnError:    func(err error) { s.finish(g, err) },
	})

	// Still active means no terminal callback fired, which happens when the
	// caller's context is cancelled. Treat that like StopGeneration.
	s.mu.Lock()
	ended := s.gen == g
	if ended {
		s.stopLocked()
	}
	s.mu.Unlock()
	cancel()

	if ended {
		s.changed()
	}
	return nil
}

// onDelta overwrites the placeholder with the full accumulated reply.
func (s *Store) onDelta(g *generation, text string) {
	s.mu.Lock()
	if s.gen != g {
		s.mu.Unlock()
		return
	}

	g.acc.WriteString(text)
	s.setReply(g, g.acc.String())
	s.mu.Unlock()

	s.changed()
}

// finish ends the generation. A non-nil err annotates the reply and
// produces an error notice.
func (s *Store) finish(g *generation, err error) {
	var notices []Notice

	s.mu.Lock()
	if s.gen != g {
		s.mu.Unlock()
		return
	}

	if err != nil {
		logf("[Chat] Stream failed for session %s: %v", g.sessionID, err)
		s.setReply(g, g.acc.String()+ErrorAnnotation)

		msg := err.Error()
		if msg == "" {
			msg = "Failed to generate response"
		}
		notices = append(notices, Notice{Level: LevelError, Title: "Error", Message: msg})
	}

	s.stopLocked()
	s.mu.Unlock()

	s.changed()
	s.deliver(notices)
}

// setReply replaces the placeholder's content. Caller holds s.mu.
func (s *Store) setReply(g *generation, content string) {
	sess := s.find(g.sessionID)
	if sess == nil {
		return
	}
	msg := sess.message(g.messageID)
	if msg == nil {
		return
	}
	msg.Content = content
	sess.UpdatedAt = s.now()
}
