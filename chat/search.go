package chat

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type sessionTitles []*Session

func (t sessionTitles) String(i int) string { return t[i].Title }
func (t sessionTitles) Len() int            { return len(t) }

// SearchSessions returns sessions whose title fuzzily matches query, best
// match first. An empty query returns every session in collection order.
func (s *Store) SearchSessions(query string) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Session, len(s.sessions))
		for i, sess := range s.sessions {
			out[i] = sess.clone()
		}
		return out
	}

	matches := fuzzy.FindFrom(query, sessionTitles(s.sessions))
	out := make([]Session, len(matches))
	for i, m := range matches {
		out[i] = s.sessions[m.Index].clone()
	}
	return out
}
