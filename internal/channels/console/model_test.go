package console

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haasonsaas/sitechat/internal/channels"
)

type stubResponder struct {
	questions []string
}

func (s *stubResponder) Start(user int64, name string) string { return "Hello " + name + "!" }
func (s *stubResponder) Handle(_ context.Context, user int64, q string) string {
	s.questions = append(s.questions, q)
	return "We ship worldwide."
}
func (s *stubResponder) Reset(int64) {}

func newModel(r channels.Responder) Model {
	return New(context.Background(), &channels.Dispatcher{Responder: r}, "you", "3 chunks from 1 source")
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_ViewBeforeResize(t *testing.T) {
	if got := newModel(&stubResponder{}).View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestModel_AskAndReply(t *testing.T) {
	r := &stubResponder{}
	m := newModel(r)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m.input.SetValue("  do you ship abroad?  ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Enter returned no command")
	}
	if !m.pending || m.input.Value() != "" {
		t.Errorf("pending = %v input = %q", m.pending, m.input.Value())
	}

	// A second Enter while waiting is ignored.
	m.input.SetValue("again")
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if second != nil {
		t.Error("Enter while pending produced a command")
	}

	m, _ = update(t, m, cmd())
	if m.pending {
		t.Error("still pending after reply")
	}
	if len(r.questions) != 1 || r.questions[0] != "do you ship abroad?" {
		t.Errorf("questions = %q", r.questions)
	}
	view := m.View()
	for _, want := range []string{"do you ship abroad?", "We ship worldwide.", "3 chunks from 1 source"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestModel_GreetingOnStart(t *testing.T) {
	m := newModel(&stubResponder{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, m.ask("/start")())
	if len(m.lines) != 1 || m.lines[0].text != "Hello you!" {
		t.Errorf("lines = %+v", m.lines)
	}
}

func TestModel_UnknownCommand(t *testing.T) {
	m := newModel(&stubResponder{})
	m, _ = update(t, m, m.ask("/frobnicate")())
	if len(m.lines) != 0 || !strings.Contains(m.status, "/help") {
		t.Errorf("lines = %+v status = %q", m.lines, m.status)
	}
}

func TestModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		text string
	}{
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, ""},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, ""},
		{"/quit", tea.KeyMsg{Type: tea.KeyEnter}, "/quit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(&stubResponder{})
			m.input.SetValue(tt.text)
			_, cmd := update(t, m, tt.msg)
			if cmd == nil {
				t.Fatal("no command returned")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Errorf("command did not quit")
			}
		})
	}
}
