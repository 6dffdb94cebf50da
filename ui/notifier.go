package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"carechat/chat"
)

// Notifier forwards store notices into a running program. Notices that
// arrive before Attach are queued and delivered once a program is attached.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
	pending []chat.Notice
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Notify never blocks: Program.Send waits until the program is running.
func (n *Notifier) Notify(notice chat.Notice) {
	n.mu.Lock()
	p := n.program
	if p == nil {
		n.pending = append(n.pending, notice)
	}
	n.mu.Unlock()

	if p != nil {
		go p.Send(noticeMsg{notice: notice})
	}
}

// Attach sets the target program and flushes queued notices.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	go func() {
		for _, notice := range pending {
			p.Send(noticeMsg{notice: notice})
		}
	}()
}

// Pending returns the notices queued before a program was attached.
func (n *Notifier) Pending() []chat.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]chat.Notice(nil), n.pending...)
}
