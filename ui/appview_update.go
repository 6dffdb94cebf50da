package ui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"carechat/chat"
	"carechat/config"
)

const toastDuration = 4 * time.Second

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		a.updateViewportContent(true)
		return a, nil

	case storeChangedMsg:
		cmd := a.syncFromStore()
		return a, cmd

	case noticeMsg:
		cmd := a.showToast(msg.notice)
		return a, cmd

	case toastExpiredMsg:
		if msg.id == a.toastID {
			a.toast = nil
		}
		return a, nil

	case sendDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			cmd := a.showToast(chat.Notice{Level: chat.LevelError, Title: "Message not sent", Message: msg.err.Error()})
			return a, cmd
		}
		return a, nil

	case clipboardMsg:
		if msg.err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Clipboard write failed: %v", msg.err)
			}
			cmd := a.showToast(chat.Notice{Level: chat.LevelError, Title: "Copy failed", Message: msg.err.Error()})
			return a, cmd
		}
		cmd := a.showToast(chat.Notice{Level: chat.LevelInfo, Title: msg.what + " copied"})
		return a, cmd

	case hospitalsLoadedMsg:
		a.hospitals.loaded(msg)
		return a, nil

	case spinner.TickMsg:
		if !a.store.IsGenerating() && !a.hospitals.loading {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.store.IsGenerating() {
			a.updateViewportContent(false)
		}
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Cursor blink and other component messages
	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

// syncFromStore refreshes everything derived from the store.
func (a *AppView) syncFromStore() tea.Cmd {
	a.sidebar.refresh(a.store)
	if a.focus != focusSidebar {
		a.sidebar.selectID(a.store.CurrentSessionID())
	}
	a.updateViewportContent(false)
	return a.startSpinner()
}

func (a *AppView) startSpinner() tea.Cmd {
	if a.spinning || (!a.store.IsGenerating() && !a.hospitals.loading) {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *AppView) showToast(n chat.Notice) tea.Cmd {
	a.toast = &n
	a.toastID++
	id := a.toastID
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.store.StopGeneration()
		return a, tea.Quit
	}

	switch {
	case a.showHelp:
		switch msg.String() {
		case "esc", "f1", "q":
			a.showHelp = false
		}
		return a, nil

	case a.showHospitals:
		cmd, closed := a.hospitals.handleKey(a.ctx, a.finder, msg)
		if closed {
			a.showHospitals = false
			return a, nil
		}
		cmd = tea.Batch(cmd, a.startSpinner())
		return a, cmd

	case a.confirmDelete.Active:
		return a.handleConfirmKey(msg)

	case a.renaming:
		return a.handleRenameKey(msg)

	case a.sidebar.filtering:
		return a.handleFilterKey(msg)
	}

	switch msg.String() {
	case "f1":
		a.showHelp = true
		return a, nil

	case "ctrl+n":
		a.store.StartNewSession()
		a.focus = focusInput
		a.textarea.Focus()
		cmd := a.syncFromStore()
		return a, cmd

	case "ctrl+x":
		a.store.StopGeneration()
		return a, nil

	case "ctrl+l":
		a.store.ClearMessages()
		cmd := a.syncFromStore()
		return a, cmd

	case "ctrl+d":
		a.askDelete(a.store.CurrentSession())
		return a, nil

	case "ctrl+r":
		a.renaming = true
		a.renameInput.SetValue(a.store.CurrentSession().Title)
		a.renameInput.CursorEnd()
		a.textarea.Blur()
		cmd := a.renameInput.Focus()
		return a, cmd

	case "ctrl+o":
		cmd := a.cycleModel()
		return a, cmd

	case "ctrl+y":
		cmd := a.copyLastReply()
		return a, cmd

	case "ctrl+g":
		if a.finder == nil {
			cmd := a.showToast(chat.Notice{Level: chat.LevelError, Title: "Hospital finder unavailable"})
			return a, cmd
		}
		a.showHospitals = true
		return a, nil

	case "tab":
		if a.focus == focusInput && a.showSidebar() {
			a.focus = focusSidebar
			a.textarea.Blur()
		} else {
			a.focus = focusInput
			a.sidebar.selectID(a.store.CurrentSessionID())
			cmd := a.textarea.Focus()
			return a, cmd
		}
		return a, nil
	}

	if a.focus == focusSidebar {
		return a.handleSidebarKey(msg)
	}
	return a.handleInputKey(msg)
}

func (a AppView) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		content := a.textarea.Value()
		if a.store.IsGenerating() {
			cmd := a.showToast(chat.Notice{Level: chat.LevelInfo, Title: "Please wait", Message: "a response is still being generated"})
			return a, cmd
		}
		a.textarea.Reset()
		return a, sendMessage(a.ctx, a.store, content)

	case "pgup", "pgdown", "ctrl+u":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		a.sidebar.move(-1)
	case "down", "j":
		a.sidebar.move(1)
	case "enter":
		if sess, ok := a.sidebar.current(); ok {
			a.store.SwitchSession(sess.ID)
			a.focus = focusInput
			cmd := tea.Batch(a.syncFromStore(), a.textarea.Focus())
			return a, cmd
		}
	case "d":
		if sess, ok := a.sidebar.current(); ok {
			a.askDelete(sess)
		}
	case "/":
		a.sidebar.filtering = true
		cmd := a.sidebar.filter.Focus()
		return a, cmd
	case "esc":
		a.focus = focusInput
		a.sidebar.selectID(a.store.CurrentSessionID())
		cmd := a.textarea.Focus()
		return a, cmd
	}
	return a, nil
}

func (a AppView) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.sidebar.clearFilter()
		a.sidebar.refresh(a.store)
		a.sidebar.selectID(a.store.CurrentSessionID())
		return a, nil
	case "enter":
		a.sidebar.filtering = false
		a.sidebar.filter.Blur()
		a.sidebar.selected = 0
		return a, nil
	}

	var cmd tea.Cmd
	a.sidebar.filter, cmd = a.sidebar.filter.Update(msg)
	a.sidebar.refresh(a.store)
	a.sidebar.selected = 0
	return a, cmd
}

func (a *AppView) askDelete(sess chat.Session) {
	msg := "Delete this chat and all of its messages?"
	if a.store.GeneratingSessionID() == sess.ID {
		msg += "\nThe response in progress will be stopped."
	}
	a.confirmDelete = ConfirmationState{
		Active:    true,
		Title:     "Delete \"" + truncate(sess.Title, 40) + "\"",
		Message:   msg,
		SessionID: sess.ID,
	}
}

func (a AppView) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := a.confirmDelete.SessionID
		a.confirmDelete = ConfirmationState{}
		a.store.DeleteSession(id)
		cmd := a.syncFromStore()
		return a, cmd
	case "n", "N", "esc", "q":
		a.confirmDelete = ConfirmationState{}
	}
	return a, nil
}

func (a AppView) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.store.RenameSession(a.store.CurrentSessionID(), a.renameInput.Value())
		fallthrough
	case "esc":
		a.renaming = false
		a.renameInput.Blur()
		a.renameInput.SetValue("")
		cmd := tea.Batch(a.syncFromStore(), a.textarea.Focus())
		return a, cmd
	}

	var cmd tea.Cmd
	a.renameInput, cmd = a.renameInput.Update(msg)
	return a, cmd
}

func (a *AppView) cycleModel() tea.Cmd {
	models := a.store.SupportedModels()
	if len(models) == 0 {
		return nil
	}
	current := a.store.CurrentSession().Model
	next := models[0]
	for i, m := range models {
		if m == current {
			next = models[(i+1)%len(models)]
			break
		}
	}
	if err := a.store.SetModel(next); err != nil {
		return a.showToast(chat.Notice{Level: chat.LevelError, Title: "Model not changed", Message: err.Error()})
	}
	return tea.Batch(a.syncFromStore(), a.showToast(chat.Notice{Level: chat.LevelInfo, Title: "Model", Message: next}))
}

func (a *AppView) copyLastReply() tea.Cmd {
	reply, ok := a.store.LastAssistantMessage()
	if !ok {
		return a.showToast(chat.Notice{Level: chat.LevelInfo, Title: "Nothing to copy"})
	}
	return func() tea.Msg {
		return clipboardMsg{what: "Reply", err: clipboard.WriteAll(reply)}
	}
}

// sendMessage runs SendMessage off the update loop; it blocks until the
// reply finishes.
func sendMessage(ctx context.Context, store *chat.Store, content string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: store.SendMessage(ctx, content)}
	}
}
