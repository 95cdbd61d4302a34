package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nanochat/nanochat-desktop/pkg/chat"
	"github.com/nanochat/nanochat-desktop/pkg/client"
)

const sidebarWidth = 28

type keyMap struct {
	Send    key.Binding
	NewChat key.Binding
	Cancel  key.Binding
	Delete  key.Binding
	Focus   key.Binding
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewChat: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel generation")),
		Delete:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete conversation")),
		Focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		Help:    key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("ctrl+h", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NewChat, k.Cancel, k.Focus, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.NewChat, k.Cancel, k.Delete},
		{k.Focus, k.Up, k.Down, k.Help, k.Quit},
	}
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// Model is the root bubbletea model: a conversation sidebar, a message
// viewport and an input box. All chat state comes from the service's view
// snapshot; the update loop only reacts to view events and key presses.
type Model struct {
	svc    *chat.Service
	models *chat.Models

	keys   keyMap
	styles styles
	help   help.Model

	input   textarea.Model
	vp      viewport.Model
	spin    spinner.Model
	mdcache *glamour.TermRenderer

	focus    focusArea
	cursor   int
	width    int
	height   int
	ready    bool
	snapshot chat.Snapshot
}

func NewModel(svc *chat.Service, models *chat.Models) Model {
	input := textarea.New()
	input.Placeholder = "Send a message..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		svc:    svc,
		models: models,
		keys:   defaultKeyMap(),
		styles: newStyles(),
		help:   help.New(),
		input:  input,
		spin:   spin,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick, m.loadConversations())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshViewport()
		return m, nil

	case viewEventMsg:
		m.snapshot = m.svc.View().Snapshot()
		m.refreshViewport()
		if msg.event.Type == chat.EventMessagesUpdated {
			m.vp.GotoBottom()
		}
		return m, nil

	case conversationsLoadedMsg:
		m.clampCursor()
		return m, nil

	case sendFailedMsg:
		// The error banner is already in the snapshot; log for the record.
		log.Debug().Err(msg.err).Msg("send failed")
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Focus):
			if m.focus == focusInput {
				m.focus = focusSidebar
				m.input.Blur()
			} else {
				m.focus = focusInput
				cmds = append(cmds, m.input.Focus())
			}
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Cancel):
			if m.snapshot.Generating {
				return m, m.cancelGeneration()
			}
			return m, nil
		case key.Matches(msg, m.keys.NewChat):
			m.focus = focusInput
			cmds = append(cmds, m.input.Focus(), m.selectConversation(""))
			return m, tea.Batch(cmds...)
		}

		if m.focus == focusSidebar {
			return m.updateSidebar(msg)
		}
		return m.updateInput(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	conversations := m.svc.Conversations().Conversations()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(conversations)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Send):
		if m.cursor < len(conversations) {
			return m, m.selectConversation(conversations[m.cursor].ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(conversations) {
			return m, m.deleteConversation(conversations[m.cursor].ID)
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Send) {
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.snapshot.Generating {
			return m, nil
		}
		m.input.Reset()
		return m, m.startGeneration(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) layout() {
	chatWidth := m.width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	vpHeight := m.height - m.input.Height() - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.vp = viewport.New(chatWidth, vpHeight)
	m.input.SetWidth(chatWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(chatWidth-2),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, falling back to plain text")
		renderer = nil
	}
	m.mdcache = renderer
}

func (m *Model) clampCursor() {
	n := len(m.svc.Conversations().Conversations())
	if m.cursor >= n && n > 0 {
		m.cursor = n - 1
	}
	if n == 0 {
		m.cursor = 0
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	var b strings.Builder
	for _, msg := range m.snapshot.Messages {
		switch msg.Role {
		case client.RoleUser:
			b.WriteString(m.styles.userLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case client.RoleAssistant:
			b.WriteString(m.styles.botLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Content))
		default:
			continue
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) renderMarkdown(content string) string {
	if m.mdcache == nil || content == "" {
		return content
	}
	out, err := m.mdcache.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var chatPane strings.Builder
	chatPane.WriteString(m.vp.View())
	chatPane.WriteString("\n")

	switch {
	case m.snapshot.LastError != "":
		chatPane.WriteString(m.styles.errBanner.Render("error: " + m.snapshot.LastError))
	case m.snapshot.Generating:
		chatPane.WriteString(m.spin.View() + m.styles.status.Render("generating..."))
	case m.snapshot.Loading:
		chatPane.WriteString(m.styles.status.Render("loading messages..."))
	default:
		chatPane.WriteString(m.modelLine())
	}
	chatPane.WriteString("\n")
	chatPane.WriteString(m.input.View())

	body := m.styles.sidebar.Render(m.renderSidebar()) + " " + chatPane.String()
	return body + "\n" + m.styles.help.Render(m.help.View(m.keys))
}

func (m Model) modelLine() string {
	if m.models == nil {
		return ""
	}
	if selected, ok := m.models.Selected(); ok {
		return m.styles.chrome.Render("model: " + selected.ModelID)
	}
	return m.styles.chrome.Render("no model selected")
}

func (m Model) renderSidebar() string {
	conversations := m.svc.Conversations().Conversations()
	if len(conversations) == 0 {
		return m.styles.sidebarItem.Width(sidebarWidth).Render("no conversations")
	}

	var b strings.Builder
	for i, conv := range conversations {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > sidebarWidth-4 {
			title = title[:sidebarWidth-5] + "…"
		}
		marker := "  "
		if conv.ID == m.snapshot.ConversationID {
			marker = "> "
		}
		prefix := ""
		if conv.Pinned {
			prefix = m.styles.sidebarPinned.Render("* ")
		}
		if conv.Generating {
			title = title + " …"
		}

		line := marker + prefix + title
		style := m.styles.sidebarItem
		if m.focus == focusSidebar && i == m.cursor {
			style = m.styles.sidebarActive
		}
		b.WriteString(style.Width(sidebarWidth).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) startGeneration(text string) tea.Cmd {
	conversationID := m.snapshot.ConversationID
	req := client.GenerateRequest{Message: text}
	if m.models != nil {
		if selected, ok := m.models.Selected(); ok {
			req.ModelID = selected.ModelID
		}
	}
	return func() tea.Msg {
		if _, err := m.svc.StartGeneration(context.Background(), conversationID, req); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func (m Model) cancelGeneration() tea.Cmd {
	conversationID := m.snapshot.ConversationID
	return func() tea.Msg {
		m.svc.CancelGeneration(context.Background(), conversationID)
		return nil
	}
}

func (m Model) selectConversation(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.SelectConversation(context.Background(), id); err != nil {
			log.Debug().Err(err).Str("conv_id", id).Msg("conversation load failed")
		}
		return nil
	}
}

func (m Model) deleteConversation(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.DeleteConversation(context.Background(), id); err != nil {
			log.Warn().Err(err).Str("conv_id", id).Msg("conversation delete failed")
			return nil
		}
		return conversationsLoadedMsg{}
	}
}

func (m Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.Conversations().Hydrate(context.Background()); err != nil {
			log.Debug().Err(err).Msg("conversation cache unavailable")
		}
		if err := m.svc.Conversations().Load(context.Background()); err != nil {
			log.Warn().Err(err).Msg("conversation list load failed")
		}
		return conversationsLoadedMsg{}
	}
}

// Run wires the model to the service's event stream and blocks until the user
// quits.
func Run(ctx context.Context, svc *chat.Service, models *chat.Models) error {
	p := tea.NewProgram(NewModel(svc, models), tea.WithAltScreen(), tea.WithContext(ctx))

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := svc.Subscribe(subCtx)
	if err != nil {
		return errors.Wrap(err, "could not subscribe to view events")
	}
	go forward(ch, ViewForwardFunc(p))

	_, err = p.Run()
	return err
}
