package ui

import (
	"fmt"
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"carechat/chat"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
)

// renderedMessage caches the markdown rendering of one assistant message.
type renderedMessage struct {
	content string
	width   int
	out     string
}

// updateViewportContent rebuilds the transcript of the current session.
// The view follows the tail when it was already at the bottom.
func (a *AppView) updateViewportContent(gotoBottom bool) {
	follow := gotoBottom || a.viewport.AtBottom()

	sess := a.store.CurrentSession()
	if len(sess.Messages) == 0 {
		a.viewport.SetContent(DimStyle.Render("No messages yet. Ask a health question to get started."))
		return
	}

	generatingID := a.store.GeneratingSessionID()
	width := a.viewport.Width - 2
	if width < 10 {
		width = 10
	}

	live := make(map[string]bool, len(sess.Messages))
	var content strings.Builder
	for i, msg := range sess.Messages {
		live[msg.ID] = true
		streaming := sess.ID == generatingID && i == len(sess.Messages)-1 && msg.Role == chat.RoleAssistant
		content.WriteString(a.formatMessage(msg, streaming, width))
	}

	// Drop renderings of messages that are gone from this session.
	for id := range a.rendered {
		if !live[id] {
			delete(a.rendered, id)
		}
	}

	a.viewport.SetContent(content.String())
	if follow {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) formatMessage(msg chat.Message, streaming bool, width int) string {
	timestamp := DimStyle.Render(msg.CreatedAt.Local().Format("[15:04]"))

	var roleStyle lipgloss.Style
	var roleName, barColor string
	switch msg.Role {
	case chat.RoleUser:
		roleStyle, roleName, barColor = UserStyle, "You", "\x1b[32;1m"
	case chat.RoleAssistant:
		roleStyle, roleName, barColor = AssistantStyle, "CareChat", "\x1b[34;1m"
	default:
		roleStyle, roleName, barColor = DimStyle, "System", "\x1b[37m"
	}
	bar := barColor + "┃" + "\x1b[0m"

	var body string
	switch {
	case msg.Role == chat.RoleAssistant && msg.Content == "" && streaming:
		body = a.spinner.View() + " Thinking..."
	case msg.Role == chat.RoleAssistant:
		body = a.renderMarkdown(msg, width)
	default:
		body = lipgloss.NewStyle().Width(width).Render(msg.Content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", bar, timestamp, roleStyle.Render(roleName))
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		fmt.Fprintf(&b, "%s %s\n", bar, line)
	}
	b.WriteString("\n")
	return b.String()
}

func (a *AppView) renderMarkdown(msg chat.Message, width int) string {
	if cached, ok := a.rendered[msg.ID]; ok && cached.content == msg.Content && cached.width == width {
		return cached.out
	}
	out := renderMarkdown(msg.Content, width)
	a.rendered[msg.ID] = renderedMessage{content: msg.Content, width: width, out: out}
	return out
}

// renderMarkdown renders content for the terminal. Autolink is disabled so
// URLs stay plain text for the terminal emulator to detect.
func renderMarkdown(content string, width int) string {
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width, 0)
	rendered := gomarkdown.Render(p.Parse([]byte(content)), r)

	// Blue background italics for inline code reads poorly; use red text.
	out := inlineCodeRegex.ReplaceAllString(string(rendered), "\x1b[31m$1\x1b[0m")
	return strings.TrimRight(out, "\n")
}

func (a AppView) renderHeader(width int) string {
	sess := a.store.CurrentSession()
	title := TitleStyle.Render(truncate(sess.Title, width/2))
	info := DimStyle.Render(fmt.Sprintf("  %s", sess.Model))

	if a.store.IsGenerating() {
		state := a.spinner.View() + " " + a.store.State().String()
		if a.store.GeneratingSessionID() != sess.ID {
			state += " in another chat"
		}
		info += "  " + InfoStyle.Render(state)
	}
	return title + info
}

func (a AppView) renderStatus(width int) string {
	if a.renaming {
		return a.renameInput.View()
	}
	if a.toast != nil {
		style := InfoStyle
		if a.toast.Level == chat.LevelError {
			style = ErrorStyle
		}
		text := a.toast.Title
		if a.toast.Message != "" {
			text += ": " + a.toast.Message
		}
		return style.Render(truncate(text, width))
	}

	if a.focus == focusSidebar {
		return StatusStyle.Render(truncate("j/k move  enter open  d delete  / filter  esc back", width))
	}
	return StatusStyle.Render(truncate("enter send  ctrl+n new  ctrl+x stop  ctrl+o model  ctrl+g hospitals  f1 help", width))
}
