// Package ui is CareChat's terminal front end. It renders the session
// store and forwards user intents to it; all conversation state lives in
// the store.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carechat/chat"
	"carechat/config"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const (
	inputHeight = 3
	minWidth    = 40
	minHeight   = 12
)

type AppView struct {
	ctx    context.Context
	store  *chat.Store
	finder HospitalFinder

	// UI Components
	viewport    viewport.Model
	textarea    textarea.Model
	spinner     spinner.Model
	sidebar     sidebar
	renameInput textinput.Model

	// Window state
	width  int
	height int
	ready  bool

	focus    focusArea
	renaming bool
	showHelp bool
	spinning bool

	showHospitals bool
	hospitals     hospitalView

	confirmDelete ConfirmationState

	toast   *chat.Notice
	toastID int

	// Markdown renderings keyed by message id
	rendered map[string]renderedMessage
}

// NewAppView builds the chat view over store. finder may be nil, which
// disables the hospital finder.
func NewAppView(ctx context.Context, store *chat.Store, finder HospitalFinder) AppView {
	ta := textarea.New()
	ta.Placeholder = "Describe your symptoms or ask a health question..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.SetWidth(80)

	// Alt+Enter inserts a newline, Enter alone sends
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	rename := textinput.New()
	rename.Prompt = "Rename: "
	rename.CharLimit = 100

	a := AppView{
		ctx:         ctx,
		store:       store,
		finder:      finder,
		viewport:    viewport.New(0, 0),
		textarea:    ta,
		spinner:     sp,
		sidebar:     newSidebar(),
		renameInput: rename,
		rendered:    make(map[string]renderedMessage),
	}
	a.sidebar.refresh(store)
	a.sidebar.selectID(store.CurrentSessionID())
	return a
}

func (a AppView) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if a.store.IsGenerating() {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading CareChat..."
	}
	if a.width < minWidth || a.height < minHeight {
		return "Terminal too small"
	}

	if a.showHelp {
		return renderHelpModal(a.width, a.height)
	}
	if a.showHospitals {
		return a.hospitals.view(a.spinner.View(), a.width, a.height)
	}
	if a.confirmDelete.Active {
		return RenderConfirmationModal(a.confirmDelete, a.width, a.height)
	}

	mainWidth := a.mainWidth()
	separator := BorderStyle.Render(strings.Repeat("─", mainWidth))

	main := lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderHeader(mainWidth),
		a.viewport.View(),
		separator,
		a.textarea.View(),
		a.renderStatus(mainWidth),
	)

	if !a.showSidebar() {
		return main
	}

	side := SidebarStyle.
		Width(sidebarWidth).
		Height(a.height).
		Render(a.sidebar.view(a.store.CurrentSessionID(), a.store.GeneratingSessionID(), a.focus == focusSidebar, a.height))

	return lipgloss.JoinHorizontal(lipgloss.Top, side, main)
}

func (a AppView) showSidebar() bool {
	return a.width >= minWidth+sidebarWidth
}

func (a AppView) mainWidth() int {
	if a.showSidebar() {
		return a.width - sidebarWidth - 2
	}
	return a.width
}

// layout sizes the components after a resize.
func (a *AppView) layout() {
	mainWidth := a.mainWidth()

	// header + separator + input + status
	chrome := 1 + 1 + inputHeight + 1
	a.viewport.Width = mainWidth
	a.viewport.Height = a.height - chrome
	if a.viewport.Height < 1 {
		a.viewport.Height = 1
	}

	a.textarea.SetWidth(mainWidth)
	a.renameInput.Width = mainWidth - len(a.renameInput.Prompt) - 1
}

// Run starts the terminal UI and blocks until the user quits. Store changes
// and notices are delivered to the program from other goroutines.
func Run(ctx context.Context, store *chat.Store, notifier *Notifier, finder HospitalFinder) error {
	app := NewAppView(ctx, store, finder)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := store.Subscribe(func() {
		go p.Send(storeChangedMsg{})
	})
	defer unsubscribe()

	if notifier != nil {
		notifier.Attach(p)
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Program exited with error: %v", err)
		}
		return fmt.Errorf("failed to run UI: %w", err)
	}
	return nil
}
