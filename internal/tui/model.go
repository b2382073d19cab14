// Package tui is a terminal front-end for the conversation controller.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/snakeaid/backend/internal/model/chat"
	chatService "github.com/zhouzirui/snakeaid/backend/internal/service/chat"
	"github.com/zhouzirui/snakeaid/backend/internal/service/relay"
)

// Controller is the part of the conversation controller the UI drives.
type Controller interface {
	Submit(ctx context.Context, text string) (chatService.Outcome, error)
	Reset(ctx context.Context) relay.ResetResult
	Snapshot() chat.Snapshot
	Subscribe() (<-chan chat.Snapshot, func())
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#2E7D32")).Padding(0, 1)
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#64B5F6"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#81C784"))
	userTextStyle  = lipgloss.NewStyle().MarginLeft(2)
	typingStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#AFAFAF"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E57373"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

const typingText = "SnakeAid is typing..."

type snapshotMsg chat.Snapshot

type submitDoneMsg struct{ err error }

type resetDoneMsg struct{ result relay.ResetResult }

// Renderer turns responder markdown into terminal text.
type Renderer func(markdown string) (string, error)

// GlamourRenderer renders markdown with the dark glamour style.
func GlamourRenderer(markdown string) (string, error) {
	return glamour.Render(markdown, "dark")
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx         context.Context
	ctrl        Controller
	updates     <-chan chat.Snapshot
	unsubscribe func()

	snapshot chat.Snapshot
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	render   Renderer
	rendered map[string]string
	status   string
}

// New subscribes to ctrl and returns the initial model. Call Close when the
// program exits.
func New(ctx context.Context, ctrl Controller, render Renderer) *Model {
	if render == nil {
		render = GlamourRenderer
	}

	input := textinput.New()
	input.Placeholder = "Describe the situation..."
	input.CharLimit = 1000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	updates, unsubscribe := ctrl.Subscribe()
	m := &Model{
		ctx:         ctx,
		ctrl:        ctrl,
		updates:     updates,
		unsubscribe: unsubscribe,
		snapshot:    ctrl.Snapshot(),
		input:       input,
		viewport:    viewport.New(80, 20),
		spinner:     spin,
		render:      render,
		rendered:    make(map[string]string),
	}
	m.refreshViewport()
	return m
}

// Close drops the controller subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForSnapshot())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.status = ""
			m.input.Reset()
			return m, m.reset()
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-5, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.rendered = make(map[string]string)
		m.refreshViewport()

	case snapshotMsg:
		m.snapshot = chat.Snapshot(msg)
		m.refreshViewport()
		return m, m.waitForSnapshot()

	case submitDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case resetDoneMsg:
		if msg.result.Err != nil {
			m.status = "responder did not confirm the reset"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SnakeAid"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.snapshot.AwaitingReply:
		b.WriteString(typingStyle.Render(m.spinner.View() + " " + typingText))
	case m.status != "":
		b.WriteString(errorStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • ctrl+r reset • esc quit"))
	return b.String()
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.snapshot.AwaitingReply {
		return nil
	}
	m.status = ""
	m.input.Reset()

	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.Submit(ctx, text)
		return submitDoneMsg{err: err}
	}
}

func (m *Model) reset() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return resetDoneMsg{result: ctrl.Reset(ctx)}
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) refreshViewport() {
	var b strings.Builder
	for _, msg := range m.snapshot.Transcript {
		if msg.FromUser() {
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(userTextStyle.Render(msg.Content))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(botLabelStyle.Render("SnakeAid"))
		b.WriteString("\n")
		b.WriteString(m.renderResponder(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderResponder(msg chat.Message) string {
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out, err := m.render(msg.Content)
	if err != nil {
		out = userTextStyle.Render(msg.Content) + "\n"
	}
	m.rendered[msg.ID] = out
	return out
}
