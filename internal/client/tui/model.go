// Package tui is the terminal chat screen: the conversation, a draft input
// that is disabled while a reply is pending, and a spinner in its place.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35"))
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Align(lipgloss.Right)
	botStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// replyMsg arrives when the pending exchange has completed.
type replyMsg struct{}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx      context.Context
	exchange *chat.Exchange
	name     string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	pending  *chat.Pending

	width int
}

// New builds the chat screen over exchange. name is shown in the title.
func New(ctx context.Context, exchange *chat.Exchange, name string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		exchange: exchange,
		name:     name,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
	}
	m.refresh()
	return m
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses, window resizes and completed replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.pending != nil {
				m.pending.Cancel()
			}
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.pending != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.exchange.SetDraft(m.input.Value())
		return m, cmd

	case replyMsg:
		m.pending = nil
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.pending == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending != nil {
		return m, nil
	}
	p, err := m.exchange.Submit(m.ctx, m.input.Value())
	if err != nil {
		return m, nil
	}
	m.pending = p
	m.input.Reset()
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(waitForReply(p), m.spinner.Tick)
}

func waitForReply(p *chat.Pending) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return replyMsg{}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderMessages(m.exchange.Messages(), m.width))
	m.viewport.GotoBottom()
}

func renderMessages(msgs []models.Message, width int) string {
	var b strings.Builder
	for _, msg := range msgs {
		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Width(width).Render(msg.Text))
		} else {
			b.WriteString(botStyle.Width(width).Render(msg.Text))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// View renders the title, the conversation and the input line.
func (m Model) View() string {
	title := "Health Chat"
	if m.name != "" {
		title += " · " + m.name
	}

	bottom := m.input.View()
	if m.pending != nil {
		bottom = m.spinner.View() + " Typing..."
	}

	return titleStyle.Render(title) + "\n" +
		m.viewport.View() + "\n" +
		bottom + "\n" +
		hintStyle.Render("enter send · ↑/↓ scroll · esc quit")
}

// Pending reports whether a reply is outstanding.
func (m Model) Pending() bool {
	return m.pending != nil
}
