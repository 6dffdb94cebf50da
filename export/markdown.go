package export

import (
	"fmt"
	"io"
	"strings"

	"carechat/chat"
)

// MarkdownExporter exports sessions as a readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *chat.Session, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", session.Title)
	fmt.Fprintf(&b, "**Model:** %s  \n", session.Model)
	fmt.Fprintf(&b, "**Created:** %s  \n", session.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(session.Messages))
	b.WriteString("---\n\n")

	for i, msg := range session.Messages {
		fmt.Fprintf(&b, "**%s** (%s)\n\n", speaker(msg.Role), msg.CreatedAt.Format("15:04"))
		if msg.Role == chat.RoleAssistant {
			// Assistant replies are already markdown.
			b.WriteString(msg.Content)
		} else {
			b.WriteString(escapeMarkdown(msg.Content))
		}
		b.WriteString("\n\n")

		if i < len(session.Messages)-1 {
			b.WriteString("---\n\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func speaker(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "CareChat"
	default:
		return "System"
	}
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		line = strings.ReplaceAll(line, "__", "\\_\\_")
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
