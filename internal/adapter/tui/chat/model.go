package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docaccess/internal/adapter/tui/components"
	"docaccess/internal/adapter/tui/theme"
	"docaccess/internal/adapter/tui/uxerror"
	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
)

// Asker answers a question about the current document.
type Asker interface {
	Ask(ctx context.Context, question string) (domain.ChatMessage, error)
}

// Transcript is the state the chat reads from.
type Transcript interface {
	CurrentDocument() (domain.ProcessedDocument, bool)
	ChatMessages() []domain.ChatMessage
	ClearChat(ctx context.Context)
}

// ModelDeps are dependencies injected into the chat model.
type ModelDeps struct {
	Chat   Asker
	State  Transcript
	Logger *slog.Logger
	Mode   string // shown in the status bar, e.g. "demo"
	Style  string // glamour style; empty = auto
}

const helpText = "**Commands**\n\n" +
	"- `Tab` cycles through suggested questions\n" +
	"- `/clear` or `Ctrl+L` clears the conversation\n" +
	"- `Esc` cancels a pending answer, `Ctrl+C` quits\n" +
	"- `/quit` exits"

// Model is the root Bubble Tea model of the document chat.
type Model struct {
	deps ModelDeps
	ctx  context.Context

	view    components.ChatViewModel
	input   textinput.Model
	status  components.StatusBarModel
	spinner spinner.Model

	docLabel   string
	waiting    bool
	gen        uint64
	cancelFn   context.CancelFunc
	suggestion int
	width      int
	height     int
	quitting   bool
}

// NewModel creates the chat model. Questions are asked with contexts derived from ctx.
func NewModel(ctx context.Context, deps ModelDeps) Model {
	deps.Logger = logger.OrDiscard(deps.Logger)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	in := textinput.New()
	in.Placeholder = "Ask about this document (Tab for suggestions)"
	in.Prompt = theme.InputPrompt.Render("> ")
	in.CharLimit = 1000
	in.Focus()

	view := components.NewChatView()
	view.Messages.Style = deps.Style

	sb := components.NewStatusBar()
	sb.Mode = deps.Mode
	sb.Hints = defaultHints()

	m := Model{
		deps:       deps,
		ctx:        ctx,
		view:       view,
		input:      in,
		status:     sb,
		spinner:    s,
		suggestion: -1,
	}
	if doc, ok := deps.State.CurrentDocument(); ok {
		m.docLabel = components.DocumentLabel(doc)
		m.status.Document = m.docLabel
	}
	return m
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Enter", Desc: "Ask"},
		{Key: "Tab", Desc: "Suggest"},
		{Key: "Ctrl+L", Desc: "Clear"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := m.width == 0
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		if first {
			m.reload()
		}
		return m, nil

	case tea.KeyMsg:
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}

	case AnswerMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.finish()
		m.reload()
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.deps.Logger.Warn("chat answer failed", "error", msg.Err)
			m.view.AddMessage(components.ChatMessage{
				Role:    components.RoleError,
				Content: uxerror.Humanize(msg.Err).Render(),
			})
		}
		return m, nil

	case ClearedMsg:
		m.reload()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.waiting {
		if _, isMouse := msg.(tea.MouseMsg); !isMouse {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keys the model owns. It reports false for keys that
// should fall through to the input and viewport.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.waiting {
			m.cancel()
			return m, nil, true
		}
		m.quitting = true
		return m, tea.Quit, true

	case tea.KeyEsc:
		if m.waiting {
			m.cancel()
			return m, nil, true
		}
		return m, nil, true

	case tea.KeyCtrlL:
		if m.waiting {
			return m, nil, true
		}
		return m, clearCmd(m.ctx, m.deps.State), true

	case tea.KeyTab:
		if m.waiting || len(domain.SuggestedQuestions) == 0 {
			return m, nil, true
		}
		m.suggestion = (m.suggestion + 1) % len(domain.SuggestedQuestions)
		m.input.SetValue(domain.SuggestedQuestions[m.suggestion])
		m.input.CursorEnd()
		return m, nil, true

	case tea.KeyEnter:
		if m.waiting {
			return m, nil, true
		}
		model, cmd := m.submit(m.input.Value())
		return model, cmd, true
	}
	return m, nil, false
}

func (m Model) submit(value string) (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(value)
	m.input.Reset()
	m.suggestion = -1

	switch question {
	case "":
		return m, nil
	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit
	case "/clear":
		return m, clearCmd(m.ctx, m.deps.State)
	case "/help":
		m.view.AddMessage(components.ChatMessage{Role: components.RoleDocument, Content: helpText})
		return m, nil
	}

	m.view.AddMessage(components.ChatMessage{Role: components.RoleUser, Content: question})

	ctx, cancel := context.WithCancel(m.ctx)
	m.gen++
	m.cancelFn = cancel
	m.waiting = true
	m.status.Extra = "Thinking..."
	return m, tea.Batch(askCmd(ctx, m.deps.Chat, question, m.gen), m.spinner.Tick)
}

// cancel abandons the pending answer; a late AnswerMsg carries a stale Gen.
func (m *Model) cancel() {
	m.gen++
	m.finish()
	m.reload()
	m.view.AddMessage(components.ChatMessage{Role: components.RoleError, Content: "Request cancelled."})
}

func (m *Model) finish() {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.waiting = false
	m.status.Extra = ""
}

// reload rebuilds the transcript from the store: the document summary
// followed by the stored conversation.
func (m *Model) reload() {
	var msgs []components.ChatMessage
	if doc, ok := m.deps.State.CurrentDocument(); ok {
		summary := doc.SimplifiedText
		if strings.TrimSpace(summary) == "" {
			summary = doc.OriginalText
		}
		msgs = append(msgs, components.ChatMessage{Role: components.RoleDocument, Content: summary})
	}
	for _, cm := range m.deps.State.ChatMessages() {
		msgs = append(msgs, components.FromDomain(cm))
	}
	m.view.Reset(msgs)
}

// View renders the chat UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	title := theme.Bold.Render("DocAccess chat")
	if m.docLabel != "" {
		title += " " + theme.TextMuted.Render(theme.SymbolArrowR+" "+m.docLabel)
	}

	inputView := m.input.View()
	if m.waiting {
		inputView = m.spinner.View() + " " + theme.Dim.Render("waiting for the answer"+theme.SymbolEllipsis)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.view.View(),
		components.Divider(m.width),
		inputView,
		m.status.View(),
	)
}

func (m *Model) layout() {
	const chromeH = 4 // title, divider, input, status
	contentH := m.height - chromeH
	if contentH < 5 {
		contentH = 5
	}
	m.view.SetSize(m.width, contentH)
	m.input.Width = m.width - 4
	m.status.SetWidth(m.width)
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, deps ModelDeps) error {
	p := tea.NewProgram(NewModel(ctx, deps),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
