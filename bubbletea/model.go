package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/skim"
)

var _ tea.Model = Model{}

const (
	// sidebarPadding is the marker column plus the border.
	sidebarPadding  = 4
	maxSidebarWidth = skim.DefaultTitleWidth + sidebarPadding
	toastDuration   = 4 * time.Second
	eventBuffer     = 256
	urlPlaceholder  = "Paste an article URL..."
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

type mode int

const (
	modeNormal mode = iota
	modeRename
	modeConfirmDelete
)

type toast struct {
	text string
	err  bool
	seq  int
}

// Model is the Bubble Tea model for the skim TUI.
type Model struct {
	// Input is the URL input, reused for titles while renaming. Exported
	// for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation area. Exported for test access.
	Viewport viewport.Model

	app     App
	theme   skim.Theme
	styles  Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	ctx    context.Context
	cancel context.CancelFunc
	events chan skim.Event

	// summaries caches rendered assistant messages by message id.
	summaries map[string]*SummaryBlock

	sessions []skim.Session
	degraded bool
	loading  bool
	cursor   int // 0 is the "New summary" row, i+1 is sessions[i]
	focus    focus
	mode     mode
	target   skim.Session // session being renamed or deleted

	toast        toast
	err          error
	height       int
	sidebarWidth int
	ready        bool
}

// New creates a TUI Model driving app. It subscribes to the reconciler, so
// it must be called once per program.
func New(app App, theme skim.Theme) Model {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan skim.Event, eventBuffer)
	app.Reconciler.Subscribe(func(e skim.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})

	styles := NewStyles(theme)

	ti := textinput.New()
	ti.Placeholder = urlPlaceholder
	ti.Prompt = ""
	ti.CharLimit = 2048
	ti.Focus()

	return Model{
		Input:     ti,
		app:       app,
		theme:     theme,
		styles:    styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Pending)),
		ctx:       ctx,
		cancel:    cancel,
		events:    events,
		summaries: make(map[string]*SummaryBlock),
		sessions:  app.Registry.Sessions(),
		loading:   true,
	}
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Loading reports whether a history load is in flight.
func (m Model) Loading() bool { return m.loading }

// Toast returns the notice currently shown in the status line.
func (m Model) Toast() string { return m.toast.text }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		loadHistory(m.ctx, m.app.Registry),
		listenForEvent(m.events),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m = m.refresh()
		cmds := []tea.Cmd{listenForEvent(m.events)}
		if _, ok := msg.Event.(skim.EventPending); ok {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case LoadedMsg:
		m.loading = false
		m = m.refresh()
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		if m.degraded {
			return m.notify("Offline: showing cached history.", true)
		}
		return m, nil

	case SubmitDoneMsg:
		m = m.refresh()
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		return m.notify("Summary generated!", false)

	case ActionDoneMsg:
		m = m.refresh()
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		switch msg.Op {
		case skim.OpRename:
			return m.notify("Summary renamed.", false)
		case skim.OpDelete:
			return m.notify("Summary deleted.", false)
		}
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast.text = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var main strings.Builder
	main.WriteString(m.Viewport.View())
	main.WriteString("\n")
	main.WriteString(m.statusLine())
	main.WriteString("\n")
	main.WriteString(m.Input.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main.String())
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.height = msg.Height
	m.sidebarWidth = min(maxSidebarWidth, msg.Width/3)
	mainWidth := max(msg.Width-m.sidebarWidth-1, 1)
	// Status and input lines sit under the viewport.
	vpHeight := max(msg.Height-2, 1)

	if !m.ready {
		m.Viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = mainWidth
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = mainWidth - 1
	m.Viewport.SetContent(m.renderConversation())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	switch m.mode {
	case modeConfirmDelete:
		return m.handleConfirmDelete(msg)
	case modeRename:
		return m.handleRename(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.Input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.Input.Focus()

	case key.Matches(msg, m.keys.New):
		return m.startNew()

	case key.Matches(msg, m.keys.Reload):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(loadHistory(m.ctx, m.app.Registry), m.spinner.Tick)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		return m.submit()
	}

	// Only non-character keys scroll the viewport, so typing j/k in a URL
	// does not move it.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.sessions) {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		s, ok := m.selected()
		if !ok {
			return m.startNew()
		}
		m.app.Controller.Open(s)
		m.focus = focusInput
		m = m.refresh()
		return m, m.Input.Focus()
	case key.Matches(msg, m.keys.Rename):
		s, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeRename
		m.target = s
		m.Input.Placeholder = "New title"
		m.Input.Prompt = "Rename: "
		m.Input.SetValue(s.Title)
		m.Input.CursorEnd()
		return m, m.Input.Focus()
	case key.Matches(msg, m.keys.Delete):
		s, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.target = s
	}
	return m, nil
}

func (m Model) handleRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m = m.endRename()
		return m, nil
	case tea.KeyEnter:
		title := m.Input.Value()
		id := m.target.ID
		m = m.endRename()
		return m, renameSession(m.ctx, m.app.Reconciler, id, title)
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) endRename() Model {
	m.mode = modeNormal
	m.target = skim.Session{}
	m.Input.SetValue("")
	m.Input.Prompt = ""
	m.Input.Placeholder = urlPlaceholder
	if m.focus == focusSidebar {
		m.Input.Blur()
	}
	return m
}

func (m Model) handleConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.target.ID
		m.mode = modeNormal
		m.target = skim.Session{}
		return m, tea.Batch(deleteSession(m.ctx, m.app.Reconciler, id), m.spinner.Tick)
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeNormal
		m.target = skim.Session{}
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	url := strings.TrimSpace(m.Input.Value())
	if err := skim.ValidateURL(url); err != nil {
		return m.notify(skim.ErrorMessage(err), true)
	}
	if id, ok := m.app.Controller.CurrentID(); ok && m.app.Reconciler.Busy(id) {
		return m.notify(skim.ErrorMessage(skim.ErrBusy), true)
	}
	m.Input.SetValue("")
	m.toast.text = ""
	return m, tea.Batch(submitURL(m.ctx, m.app.Controller, url), m.spinner.Tick)
}

func (m Model) startNew() (tea.Model, tea.Cmd) {
	m.app.Controller.StartNew()
	m.cursor = 0
	m.focus = focusInput
	m = m.refresh()
	return m, m.Input.Focus()
}

// fail surfaces err. A rejected credential ends the session: the pointer
// to the open session is cleared and the program quits so the user can
// sign in again.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, skim.ErrAuth) {
		m.app.Controller.StartNew()
		if m.app.Logout != nil {
			m.app.Logout()
		}
		m.err = err
		m.cancel()
		return m, tea.Quit
	}
	return m.notify(skim.ErrorMessage(err), true)
}

func (m Model) notify(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.toast = toast{text: text, err: isErr, seq: m.toast.seq + 1}
	seq := m.toast.seq
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// refresh re-reads the registry and the open session.
func (m Model) refresh() Model {
	m.sessions = m.app.Registry.Sessions()
	m.degraded = m.app.Registry.Degraded()
	m.cursor = min(m.cursor, len(m.sessions))
	if m.ready {
		m.Viewport.SetContent(m.renderConversation())
		m.Viewport.GotoBottom()
	}
	return m
}

func (m Model) selected() (skim.Session, bool) {
	if m.cursor == 0 || m.cursor > len(m.sessions) {
		return skim.Session{}, false
	}
	return m.sessions[m.cursor-1], true
}

func (m Model) busy() bool {
	if id, ok := m.app.Controller.CurrentID(); ok && m.app.Reconciler.Busy(id) {
		return true
	}
	for _, s := range m.sessions {
		if m.app.Reconciler.Busy(s.ID) {
			return true
		}
	}
	return false
}

func (m Model) renderConversation() string {
	s, ok := m.app.Controller.Current()
	if !ok || (len(s.Messages) == 0 && s.SyncState != skim.SyncError) {
		return m.styles.Muted.Render("Paste an article URL below to summarize it.")
	}
	width := m.Viewport.Width

	blocks := []MessageBlock{}
	for _, msg := range s.Messages {
		switch msg.Role {
		case skim.RoleUser:
			blocks = append(blocks, NewUserMessageBlock(msg.Content, m.styles))
		case skim.RoleAssistant:
			b, ok := m.summaries[msg.ID]
			if !ok {
				b = NewSummaryBlock(msg.Content, m.theme)
				m.summaries[msg.ID] = b
			}
			blocks = append(blocks, b)
		}
	}
	switch s.SyncState {
	case skim.SyncPending:
		blocks = append(blocks, NewPendingBlock("Summarizing...", m.styles))
	case skim.SyncError:
		blocks = append(blocks, NewErrorBlock("Not saved. Submit the URL again to retry.", m.styles))
	}

	var b strings.Builder
	b.WriteString(m.styles.Accent.Render(skim.TruncateTitle(displayTitle(s), width)))
	for _, block := range blocks {
		b.WriteString("\n\n")
		b.WriteString(block.View(width))
	}
	return b.String()
}

func (m Model) renderSidebar() string {
	width := m.sidebarWidth
	titleWidth := max(width-sidebarPadding, 1)
	currentID, _ := m.app.Controller.CurrentID()

	var lines []string
	header := m.styles.Accent.Render("History")
	if m.degraded {
		header += " " + m.styles.Error.Render("(offline)")
	}
	lines = append(lines, header, "")
	lines = append(lines, m.sidebarRow(0, "", m.styles.Success.Render("+ New summary")))

	// Each session takes two lines; keep the cursor row on screen.
	visible := max((m.height-len(lines))/2, 1)
	offset := max(m.cursor-visible, 0)
	for i := offset; i < len(m.sessions); i++ {
		s := m.sessions[i]
		title := skim.TruncateTitle(displayTitle(s), titleWidth)
		if skim.SameID(s.ID, currentID) {
			title = lipgloss.NewStyle().Bold(true).Render(title)
		}
		lines = append(lines,
			m.sidebarRow(i+1, m.marker(s), title),
			"  "+m.styles.Muted.Render(formatDate(s)),
		)
	}
	content := strings.Join(lines, "\n")
	return m.styles.Sidebar.Width(width).Height(m.height).MaxHeight(m.height).Render(content)
}

func (m Model) sidebarRow(index int, marker, text string) string {
	if marker == "" {
		marker = " "
	}
	if index == m.cursor && m.focus == focusSidebar {
		return m.styles.Selected.Render("▸") + marker + m.styles.Selected.Render(text)
	}
	return " " + marker + text
}

func (m Model) marker(s skim.Session) string {
	switch {
	case s.SyncState == skim.SyncPending || m.app.Reconciler.Busy(s.ID):
		return m.styles.Pending.Render("…")
	case s.SyncState == skim.SyncError:
		return m.styles.Error.Render("!")
	case s.SyncState == skim.SyncLocalOnly:
		return m.styles.Muted.Render("○")
	}
	return " "
}

// displayTitle falls back to the URL for sessions that were never titled.
func displayTitle(s skim.Session) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.URL != "":
		return s.URL
	default:
		return "Untitled"
	}
}

func formatDate(s skim.Session) string {
	t := s.UpdatedAt
	if t.IsZero() {
		t = s.CreatedAt
	}
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 15:04")
}

func (m Model) statusLine() string {
	switch {
	case m.mode == modeConfirmDelete:
		return m.styles.Error.Render(fmt.Sprintf("Delete %q? y/n", skim.TruncateTitle(m.target.Title, skim.DefaultTitleWidth)))
	case m.toast.text != "" && m.toast.err:
		return m.styles.Error.Render(m.toast.text)
	case m.toast.text != "":
		return m.styles.Success.Render(m.toast.text)
	case m.busy():
		label := "Syncing..."
		if id, ok := m.app.Controller.CurrentID(); ok && m.app.Reconciler.Busy(id) {
			label = "Summarizing..."
		}
		return m.spinner.View() + " " + m.styles.Muted.Render(label)
	case m.loading:
		return m.spinner.View() + " " + m.styles.Muted.Render("Loading history...")
	case m.focus == focusSidebar:
		return m.help.ShortHelpView(m.keys.sidebarHelp())
	default:
		return m.help.ShortHelpView(m.keys.inputHelp())
	}
}

func loadHistory(ctx context.Context, reg *skim.Registry) tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{Err: reg.Load(ctx)}
	}
}

func submitURL(ctx context.Context, ctl *skim.Controller, url string) tea.Cmd {
	return func() tea.Msg {
		s, err := ctl.Submit(ctx, url)
		return SubmitDoneMsg{Session: s, Err: err}
	}
}

func renameSession(ctx context.Context, rec *skim.Reconciler, id skim.SessionID, title string) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Op: skim.OpRename, ID: id, Err: rec.Rename(ctx, id, title)}
	}
}

func deleteSession(ctx context.Context, rec *skim.Reconciler, id skim.SessionID) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Op: skim.OpDelete, ID: id, Err: rec.Delete(ctx, id)}
	}
}

// listenForEvent waits for the next reconciler event.
func listenForEvent(ch <-chan skim.Event) tea.Cmd {
	return func() tea.Msg {
		return EventMsg{Event: <-ch}
	}
}
