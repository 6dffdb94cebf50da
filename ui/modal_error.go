package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModal is a standalone modal for configuration errors that stop
// CareChat before the chat view starts.
type ErrorModal struct {
	title   string
	message string
	width   int
	height  int
}

func NewErrorModal(title, message string) ErrorModal {
	return ErrorModal{
		title:   title,
		message: message,
	}
}

func (m ErrorModal) Init() tea.Cmd {
	return nil
}

func (m ErrorModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "q", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ErrorModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}
	return renderModal(m.title, dangerColor, m.message, "Press Enter to quit", m.width, m.height)
}

// ShowError runs an ErrorModal until the user dismisses it.
func ShowError(title, message string) error {
	p := tea.NewProgram(NewErrorModal(title, message), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
