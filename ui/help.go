package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	title := green.Render("CareChat - Keyboard Shortcuts")

	blue := lipgloss.NewStyle().Foreground(accentColor)

	row := func(keys, desc string) string {
		return fmt.Sprintf("• %-11s %s", keys, desc)
	}

	chatActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Chat"),
		row("Enter", "Send message"),
		row("Alt+Enter", "New line"),
		row("Ctrl+X", "Stop response"),
		row("Ctrl+Y", "Copy last reply"),
		row("Ctrl+O", "Next model"),
		row("PgUp/PgDn", "Scroll"),
		row("Ctrl+G", "Find hospitals"),
		row("F1", "Toggle help"),
		row("Ctrl+C", "Quit"),
	)

	sessionActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Sessions"),
		row("Ctrl+N", "New chat"),
		row("Ctrl+R", "Rename chat"),
		row("Ctrl+L", "Clear messages"),
		row("Ctrl+D", "Delete chat"),
		row("Tab", "Focus chat list"),
		row("j/k", "Move in list"),
		row("/", "Filter chats"),
		row("d", "Delete selected"),
	)

	notice := DimStyle.Render("CareChat gives general health information, not medical advice.\n" +
		"In an emergency, contact your local emergency number.")

	columnStyle := lipgloss.NewStyle().Width(36).PaddingLeft(4)

	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(chatActions),
		columnStyle.Render(sessionActions),
	)

	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Render("Press F1 or Esc to close this help")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		twoColumns,
		"",
		notice,
		"",
		footer,
	)

	boxWidth := 80
	if width < boxWidth+4 {
		boxWidth = width - 4
	}

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox.Render(content),
	)
}
