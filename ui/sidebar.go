package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/mattn/go-runewidth"

	"carechat/chat"
)

const sidebarWidth = 30

// sidebar lists sessions most recent first. A non-empty filter narrows the
// list with a fuzzy match on titles.
type sidebar struct {
	sessions  []chat.Session
	selected  int
	filtering bool
	filter    textinput.Model
}

func newSidebar() sidebar {
	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter"
	filter.CharLimit = 64
	return sidebar{filter: filter}
}

func (s *sidebar) refresh(store *chat.Store) {
	if q := strings.TrimSpace(s.filter.Value()); q != "" {
		s.sessions = store.SearchSessions(q)
	} else {
		s.sessions = store.Sessions()
	}
	s.clamp()
}

// selectID moves the cursor to the session with the given id when listed.
func (s *sidebar) selectID(id string) {
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.selected = i
			return
		}
	}
	s.clamp()
}

func (s *sidebar) move(delta int) {
	s.selected += delta
	s.clamp()
}

func (s *sidebar) clamp() {
	if s.selected >= len(s.sessions) {
		s.selected = len(s.sessions) - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
}

func (s *sidebar) current() (chat.Session, bool) {
	if s.selected < len(s.sessions) {
		return s.sessions[s.selected], true
	}
	return chat.Session{}, false
}

func (s *sidebar) clearFilter() {
	s.filter.SetValue("")
	s.filter.Blur()
	s.filtering = false
}

func (s sidebar) view(currentID, generatingID string, focused bool, height int) string {
	var lines []string

	header := "Chats"
	if focused {
		header = SelectedStyle.Render(header)
	} else {
		header = TitleStyle.Render(header)
	}
	lines = append(lines, header)

	if s.filtering || s.filter.Value() != "" {
		lines = append(lines, s.filter.View())
	}
	lines = append(lines, "")

	if len(s.sessions) == 0 {
		lines = append(lines, DimStyle.Render("No matching chats"))
	}

	// Keep the cursor visible when the list is taller than the pane.
	visible := height - len(lines)
	start := 0
	if visible > 0 && s.selected >= visible {
		start = s.selected - visible + 1
	}

	for i := start; i < len(s.sessions); i++ {
		if visible > 0 && i-start >= visible {
			break
		}
		sess := s.sessions[i]

		marker := "  "
		switch {
		case sess.ID == generatingID:
			marker = "• "
		case sess.ID == currentID:
			marker = "> "
		}

		line := marker + truncate(sess.Title, sidebarWidth-runewidth.StringWidth(marker)-1)
		switch {
		case focused && i == s.selected:
			line = SelectedStyle.Render(line)
		case sess.ID == currentID:
			line = AssistantStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// truncate shortens s to width terminal cells, counting wide runes twice.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
