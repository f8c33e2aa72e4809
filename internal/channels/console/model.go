// Package console is a terminal chat against the conversation engine.
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/haasonsaas/sitechat/internal/channels"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// UserID is the history key for the console user.
const UserID int64 = 0

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type line struct {
	from string
	text string
}

// replyMsg carries an answer back into the update loop.
type replyMsg struct {
	text string
	kind string
}

// Model is the Bubble Tea model for the console chat.
type Model struct {
	ctx        context.Context
	dispatcher *channels.Dispatcher
	name       string
	summary    string

	input    textinput.Model
	viewport viewport.Model
	lines    []line
	pending  bool
	ready    bool
	status   string
}

// New returns a console model. summary is shown under the title.
func New(ctx context.Context, dispatcher *channels.Dispatcher, displayName, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, /reset to start over"
	ti.CharLimit = 0
	ti.Focus()
	return Model{
		ctx:        ctx,
		dispatcher: dispatcher,
		name:       displayName,
		summary:    summary,
		input:      ti,
		viewport:   viewport.New(0, 0),
		status:     "Ctrl+C to quit",
	}
}

// Init sends /start so the transcript opens with the greeting.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.ask("/start"))
}

func (m Model) ask(text string) tea.Cmd {
	return func() tea.Msg {
		reply, kind := m.dispatcher.Dispatch(m.ctx, channels.Inbound{
			Channel:     models.ChannelConsole,
			UserID:      UserID,
			DisplayName: m.name,
			Text:        text,
		})
		return replyMsg{text: reply, kind: kind}
	}
}

// Update handles key presses, window resizes and replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := boxStyle.GetFrameSize()
		// title, summary, input box (3 lines), status
		height := msg.Height - 6 - frame
		if height < 3 {
			height = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = height
		m.input.Width = msg.Width - 6
		m.refresh()
		return m, nil

	case replyMsg:
		m.pending = false
		m.status = "Ctrl+C to quit"
		if msg.text != "" {
			m.lines = append(m.lines, line{from: "bot", text: msg.text})
		} else if msg.kind == channels.KindIgnored {
			m.status = "Unknown command. Try /help"
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.pending {
				return m, nil
			}
			if text == "/quit" || text == "/exit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.lines = append(m.lines, line{from: "you", text: text})
			m.pending = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	var b strings.Builder
	width := m.viewport.Width - 4
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := botStyle.Render("bot")
		if l.from == "you" {
			label = userStyle.Render("you")
		}
		text := l.text
		if width > 20 {
			text = lipgloss.NewStyle().Width(width).Render(text)
		}
		fmt.Fprintf(&b, "%s\n%s", label, text)
	}
	return b.String()
}

// View renders the transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return titleStyle.Render("sitechat") + "\n" +
		statusStyle.Render(m.summary) + "\n" +
		m.viewport.View() + "\n" +
		boxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(m.status)
}

// Run starts the console program and blocks until the user quits.
func Run(ctx context.Context, dispatcher *channels.Dispatcher, displayName, summary string) error {
	p := tea.NewProgram(New(ctx, dispatcher, displayName, summary), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
