package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"carechat/chat"
	"carechat/hospital"
	"carechat/provider/testutil"
)

func newTestApp(t *testing.T, mock *testutil.MockClient) AppView {
	t.Helper()
	if mock == nil {
		mock = testutil.NewMockClient()
	}
	store, err := chat.New(context.Background(), chat.Options{Client: mock})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	app := NewAppView(context.Background(), store, &fakeFinder{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(AppView)
}

func press(t *testing.T, a AppView, keys ...string) (AppView, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "ctrl+n":
			msg = tea.KeyMsg{Type: tea.KeyCtrlN}
		case "ctrl+l":
			msg = tea.KeyMsg{Type: tea.KeyCtrlL}
		case "ctrl+d":
			msg = tea.KeyMsg{Type: tea.KeyCtrlD}
		case "ctrl+r":
			msg = tea.KeyMsg{Type: tea.KeyCtrlR}
		case "ctrl+o":
			msg = tea.KeyMsg{Type: tea.KeyCtrlO}
		case "ctrl+g":
			msg = tea.KeyMsg{Type: tea.KeyCtrlG}
		case "ctrl+u":
			msg = tea.KeyMsg{Type: tea.KeyCtrlU}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, c := a.Update(msg)
		a, cmd = m.(AppView), c
	}
	return a, cmd
}

func TestSendMessageFromInput(t *testing.T) {
	a := newTestApp(t, nil)

	a, _ = press(t, a, "I have a headache")
	a, cmd := press(t, a, "enter")
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if a.textarea.Value() != "" {
		t.Errorf("input not cleared: %q", a.textarea.Value())
	}

	msg := cmd()
	done, ok := msg.(sendDoneMsg)
	if !ok {
		t.Fatalf("expected sendDoneMsg, got %T", msg)
	}
	if done.err != nil {
		t.Fatalf("send failed: %v", done.err)
	}

	sess := a.store.CurrentSession()
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sess.Messages))
	}
	if sess.Messages[1].Content != "Mock response" {
		t.Errorf("reply = %q", sess.Messages[1].Content)
	}
	if sess.Title != "I have a headache" {
		t.Errorf("title = %q", sess.Title)
	}

	m, _ := a.Update(storeChangedMsg{})
	a = m.(AppView)
	if !strings.Contains(a.viewport.View(), "Mock response") {
		t.Error("viewport does not show the reply")
	}
}

func TestSessionKeys(t *testing.T) {
	a := newTestApp(t, nil)
	first := a.store.CurrentSessionID()

	a, _ = press(t, a, "ctrl+n")
	if got := len(a.store.Sessions()); got != 2 {
		t.Fatalf("ctrl+n: expected 2 sessions, got %d", got)
	}
	if a.store.CurrentSessionID() == first {
		t.Error("ctrl+n did not switch to the new session")
	}
	if len(a.sidebar.sessions) != 2 {
		t.Errorf("sidebar not refreshed: %d entries", len(a.sidebar.sessions))
	}

	a, _ = press(t, a, "ctrl+r")
	if !a.renaming {
		t.Fatal("ctrl+r did not start renaming")
	}
	a.renameInput.SetValue("  Allergies  ")
	a, _ = press(t, a, "enter")
	if got := a.store.CurrentSession().Title; got != "Allergies" {
		t.Errorf("rename: title = %q", got)
	}

	a, _ = press(t, a, "ctrl+d")
	if !a.confirmDelete.Active {
		t.Fatal("ctrl+d did not ask for confirmation")
	}
	a, _ = press(t, a, "n")
	if len(a.store.Sessions()) != 2 {
		t.Fatal("declined delete removed a session")
	}

	a, _ = press(t, a, "ctrl+d", "y")
	if len(a.store.Sessions()) != 1 || a.store.CurrentSessionID() != first {
		t.Errorf("delete: sessions=%d current=%s", len(a.store.Sessions()), a.store.CurrentSessionID())
	}
}

func TestCycleModel(t *testing.T) {
	a := newTestApp(t, nil)
	models := a.store.SupportedModels()
	before := a.store.CurrentSession().Model

	a, _ = press(t, a, "ctrl+o")
	after := a.store.CurrentSession().Model
	if after == before {
		t.Fatalf("model unchanged: %s", after)
	}

	for range models[1:] {
		a, _ = press(t, a, "ctrl+o")
	}
	if got := a.store.CurrentSession().Model; got != before {
		t.Errorf("cycling through all models should wrap to %s, got %s", before, got)
	}
}

func TestSidebarNavigation(t *testing.T) {
	a := newTestApp(t, nil)
	first := a.store.CurrentSessionID()
	a, _ = press(t, a, "ctrl+n")

	a, _ = press(t, a, "tab")
	if a.focus != focusSidebar {
		t.Fatal("tab did not focus the sidebar")
	}
	a, _ = press(t, a, "j", "enter")
	if a.store.CurrentSessionID() != first {
		t.Errorf("enter did not switch to %s", first)
	}
	if a.focus != focusInput {
		t.Error("switching should return focus to the input")
	}
}

func TestSidebarFilter(t *testing.T) {
	a := newTestApp(t, nil)
	a.store.RenameSession(a.store.CurrentSessionID(), "Knee pain")
	a.store.StartNewSession()
	a.store.RenameSession(a.store.CurrentSessionID(), "Sleep problems")
	m, _ := a.Update(storeChangedMsg{})
	a = m.(AppView)

	a, _ = press(t, a, "tab", "/", "k", "n", "e")
	if len(a.sidebar.sessions) != 1 || a.sidebar.sessions[0].Title != "Knee pain" {
		t.Errorf("filter: got %v", a.sidebar.sessions)
	}

	a, _ = press(t, a, "esc")
	if a.sidebar.filtering || len(a.sidebar.sessions) != 2 {
		t.Errorf("esc should clear the filter, got %d sessions", len(a.sidebar.sessions))
	}
}

func TestNoticeShowsToast(t *testing.T) {
	a := newTestApp(t, nil)

	m, cmd := a.Update(noticeMsg{notice: chat.Notice{Level: chat.LevelError, Title: "Error", Message: "Failed to send message"}})
	a = m.(AppView)
	if cmd == nil {
		t.Fatal("expected toast expiry command")
	}
	if !strings.Contains(a.renderStatus(100), "Failed to send message") {
		t.Errorf("status = %q", a.renderStatus(100))
	}

	m, _ = a.Update(toastExpiredMsg{id: a.toastID - 1})
	a = m.(AppView)
	if a.toast == nil {
		t.Fatal("stale expiry cleared the current toast")
	}

	m, _ = a.Update(toastExpiredMsg{id: a.toastID})
	a = m.(AppView)
	if a.toast != nil {
		t.Error("toast not cleared")
	}
}

func TestNotifierQueuesUntilAttached(t *testing.T) {
	n := NewNotifier()
	n.Notify(chat.Notice{Title: "one"})
	n.Notify(chat.Notice{Title: "two"})

	pending := n.Pending()
	if len(pending) != 2 || pending[0].Title != "one" || pending[1].Title != "two" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{in: "short", width: 10, want: "short"},
		{in: "a long session title", width: 8, want: "a long …"},
		{in: "頭痛がひどい", width: 7, want: "頭痛が…"},
		{in: "anything", width: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncate(tt.in, tt.width); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

type fakeFinder struct {
	loc       *hospital.Location
	hospitals []hospital.Hospital
	err       error
}

func (f *fakeFinder) UserLocation(ctx context.Context) (*hospital.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.loc, nil
}

func (f *fakeFinder) NearbyHospitals(ctx context.Context, lat, lon float64) ([]hospital.Hospital, error) {
	return f.hospitals, nil
}

func TestHospitalView(t *testing.T) {
	var hs []hospital.Hospital
	for i := 0; i < 12; i++ {
		hs = append(hs, hospital.Hospital{ID: string(rune('a' + i)), Name: "Near " + string(rune('A'+i)), Distance: 1})
	}
	hs = append(hs, hospital.Hospital{ID: "m", Name: "Mid", Distance: 10}, hospital.Hospital{ID: "f", Name: "Far", Distance: 25})

	a := newTestApp(t, nil)
	a.finder = &fakeFinder{loc: &hospital.Location{City: "Lyon", Region: "ARA"}, hospitals: hs}

	a, _ = press(t, a, "ctrl+g")
	if !a.showHospitals {
		t.Fatal("ctrl+g did not open the hospital finder")
	}

	a, cmd := press(t, a, "enter")
	if !a.hospitals.loading || cmd == nil {
		t.Fatal("enter did not start a lookup")
	}
	msg := fetchHospitals(context.Background(), a.finder)()
	m, _ := a.Update(msg)
	a = m.(AppView)

	if a.hospitals.loading || a.hospitals.groups == nil {
		t.Fatal("results not loaded")
	}
	if got := len(a.hospitals.shown()); got != collapsedCount {
		t.Errorf("collapsed: shown %d", got)
	}
	if !strings.Contains(a.View(), "Show 9 more") {
		t.Error("missing show-more hint")
	}

	a, _ = press(t, a, "e")
	if got := len(a.hospitals.shown()); got != expandedCount {
		t.Errorf("expanded: shown %d", got)
	}

	a, _ = press(t, a, "l")
	if a.hospitals.tab != 1 || len(a.hospitals.shown()) != 1 {
		t.Errorf("tab 1: %d hospitals", len(a.hospitals.shown()))
	}

	a, _ = press(t, a, "esc")
	if a.showHospitals {
		t.Error("esc did not close the finder")
	}
}

func TestHospitalLocationFailure(t *testing.T) {
	h := hospitalView{}
	h.start()
	msg := fetchHospitals(context.Background(), &fakeFinder{err: errors.New("rate limited")})()
	h.loaded(msg.(hospitalsLoadedMsg))

	if h.err != "could not determine your location" {
		t.Errorf("err = %q", h.err)
	}
	if h.groups != nil {
		t.Error("groups should stay empty")
	}
}
