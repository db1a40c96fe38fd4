package cli

import (
	"strings"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/cli/message"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MsgLoggedOut is shown after L.
const MsgLoggedOut = "已登出"

const sidebarWidth = 10

// appModel is the root bubbletea Model for the TUI.
// It manages a view stack whose bottom entry is either the login screen or
// the active sidebar section.
type appModel struct {
	state     *SharedState
	viewStack []View
	feed      *userFeed
	quitting  bool
}

func newAppModel(app *App) appModel {
	state := newSharedState(app)
	m := appModel{state: state}

	if app.Session.Authenticated() {
		app.Auth.Restore()
		m.viewStack = []View{newSectionView(state, ViewProjects)}
	} else {
		m.viewStack = []View{newLoginView(state)}
	}
	return m
}

// activeView returns the top view on the stack, or nil.
func (m *appModel) activeView() View {
	if len(m.viewStack) == 0 {
		return nil
	}
	return m.viewStack[len(m.viewStack)-1]
}

// setActiveView replaces the top of the view stack.
// If the stack is empty, this is a no-op.
func (m *appModel) setActiveView(v View) {
	if len(m.viewStack) > 0 {
		m.viewStack[len(m.viewStack)-1] = v
	}
}

func (m *appModel) authenticated() bool {
	return m.state.App.Session.Authenticated()
}

// ── bubbletea interface ──────────────────────────────────────────────────────

func (m appModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if v := m.activeView(); v != nil {
		cmds = append(cmds, v.Init())
	}
	if m.authenticated() {
		cmds = append(cmds, subscribeUsers(m.state.App.Client))
	}
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		m.state.Height = msg.Height
		return m, m.forward(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case message.DismissMsg:
		m.state.Messages.Update(msg)
		return m, nil

	case spinner.TickMsg:
		return m, m.state.Loading.Update(msg)

	// Navigation messages from views
	case pushViewMsg:
		m.viewStack = append(m.viewStack, msg.view)
		return m, msg.view.Init()

	case popViewMsg:
		m.pop()
		return m, nil

	case replaceViewMsg:
		if len(m.viewStack) > 0 {
			closeView(m.activeView())
			m.viewStack[len(m.viewStack)-1] = msg.view
		} else {
			m.viewStack = append(m.viewStack, msg.view)
		}
		return m, msg.view.Init()

	case wizardCompleteMsg:
		// Atomically pop the wizard view and execute the follow-up command.
		m.pop()
		return m, msg.nextCmd

	case loggedInMsg:
		m.state.App.Logger.Info("signed in", "user", msg.session.UserID, "login_type", msg.session.LoginType)
		m.resetStack(newSectionView(m.state, ViewProjects))
		return m, tea.Batch(m.activeView().Init(), subscribeUsers(m.state.App.Client))

	case logoutMsg:
		return m.logout()

	case feedStartedMsg:
		if !m.authenticated() || m.feed != nil {
			msg.feed.stop()
			return m, nil
		}
		m.feed = msg.feed
		return m, m.feed.next()

	case feedFailedMsg:
		m.state.App.Logger.Warn("users subscription failed", "error", msg.err)
		return m, nil

	case userEventMsg:
		if msg.feed != m.feed {
			return m, nil
		}
		var cmd tea.Cmd
		if name := newUserName(msg.event); name != "" {
			cmd = m.state.Messages.Success(MsgUserCreated + name)
		}
		return m, tea.Batch(cmd, m.feed.next())

	case broadcastMsg:
		var cmds []tea.Cmd
		for i, v := range m.viewStack {
			updated, cmd := v.Update(msg)
			m.viewStack[i] = updated.(View)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, m.forward(msg)
}

// forward sends msg to the active view.
func (m *appModel) forward(msg tea.Msg) tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	updated, cmd := v.Update(msg)
	m.setActiveView(updated.(View))
	return cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	// If active view captures input (has its own text input), forward directly.
	// This bypasses global keybindings so forms receive every character.
	if v := m.activeView(); v != nil && viewCapturesInput(v) {
		return m, m.forward(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()

	case "esc":
		m.pop()
		return m, nil
	}

	if m.authenticated() && len(m.viewStack) == 1 {
		switch s := msg.String(); s {
		case "1", "2", "3", "4":
			return m, m.switchSection(sections[s[0]-'1'].id)
		case "tab":
			next := (sectionIndex(m.activeView().ID()) + 1) % len(sections)
			return m, m.switchSection(sections[next].id)
		case "i":
			v := newUserInfoView(m.state)
			m.viewStack = append(m.viewStack, v)
			return m, v.Init()
		case "L":
			return m.logout()
		}
	}

	return m, m.forward(msg)
}

func (m *appModel) pop() {
	if len(m.viewStack) > 1 {
		closeView(m.activeView())
		m.viewStack = m.viewStack[:len(m.viewStack)-1]
	}
}

// resetStack closes every view and starts over from root.
func (m *appModel) resetStack(root View) {
	for _, v := range m.viewStack {
		closeView(v)
	}
	m.state.Loading.Reset()
	m.viewStack = []View{root}
}

func (m *appModel) switchSection(id ViewID) tea.Cmd {
	if v := m.activeView(); v != nil && v.ID() == id {
		return nil
	}
	m.resetStack(newSectionView(m.state, id))
	return m.activeView().Init()
}

func (m *appModel) stopFeed() {
	if m.feed != nil {
		m.feed.stop()
		m.feed = nil
	}
}

func (m appModel) logout() (tea.Model, tea.Cmd) {
	m.stopFeed()
	if err := m.state.App.Auth.Logout(); err != nil {
		m.state.App.Logger.Warn("clearing session", "error", err)
	}
	login := newLoginView(m.state)
	m.resetStack(login)
	return m, tea.Batch(login.Init(), m.state.Messages.Info(MsgLoggedOut))
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	m.stopFeed()
	for _, v := range m.viewStack {
		closeView(v)
	}
	m.quitting = true
	return m, tea.Quit
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	var parts []string

	// Header
	parts = append(parts, m.renderHeader())

	content := ""
	if v := m.activeView(); v != nil {
		content = v.View()
	}
	if m.authenticated() && len(m.viewStack) > 0 && isSection(m.viewStack[0].ID()) {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), content)
	}
	parts = append(parts, content)

	// Message line: the transient message wins over the spinner.
	line := m.state.Messages.View()
	if line == "" {
		line = m.state.Loading.View()
	}
	parts = append(parts, line)

	// Status/shortcut bar
	parts = append(parts, m.renderStatusBar())

	result := strings.Join(parts, "\n")

	// Pad to terminal height to prevent stale line artifacts from
	// bubbletea's line-diff renderer in alt-screen mode.
	if m.state.Height > 0 {
		lines := strings.Count(result, "\n") + 1
		if lines < m.state.Height {
			result += strings.Repeat("\n", m.state.Height-lines)
		}
	}

	return result
}

// ── rendering helpers ────────────────────────────────────────────────────────

func (m *appModel) renderHeader() string {
	title := formatter.StylePurple.Render("AIT 工時管理")

	// Breadcrumb from view stack
	var crumbs []string
	for _, v := range m.viewStack {
		if t := v.Title(); t != "" {
			crumbs = append(crumbs, t)
		}
	}
	breadcrumb := ""
	if len(crumbs) > 0 {
		breadcrumb = " " + formatter.Dim("›") + " " + formatter.Dim(strings.Join(crumbs, " › "))
	}

	header := title + breadcrumb

	if m.authenticated() {
		sess := m.state.App.Session
		name := sess.UserName()
		if name == "" {
			name = sess.UserEmail()
		}
		header += "  " + formatter.Dim("[") + formatter.StyleGreen.Render(name) + formatter.Dim("]")
	}

	sep := formatter.Dim(strings.Repeat("─", max(m.state.Width, 20)))
	return header + "\n" + sep
}

func (m *appModel) renderSidebar() string {
	active := -1
	if len(m.viewStack) > 0 {
		active = sectionIndex(m.viewStack[0].ID())
	}
	lines := make([]string, len(sections))
	for i, s := range sections {
		label := s.key + " " + s.label
		if i == active {
			lines[i] = formatter.StyleSelected.Render(label)
		} else {
			lines[i] = formatter.Dim(label)
		}
	}
	return lipgloss.NewStyle().
		Width(sidebarWidth).
		MarginRight(1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(formatter.ColorDim).
		Render(strings.Join(lines, "\n"))
}

func (m *appModel) renderStatusBar() string {
	var hints []string

	if v := m.activeView(); v != nil {
		for _, b := range v.ShortHelp() {
			hints = append(hints, formatter.Dim(b.Help().Key+": "+b.Help().Desc))
		}
	}

	// Show navigation hints
	if len(m.viewStack) > 1 && !viewCapturesInput(m.activeView()) {
		hints = append(hints, formatter.Dim("esc: 返回"))
	}
	if m.authenticated() && len(m.viewStack) == 1 {
		hints = append(hints,
			formatter.Dim("1-4/tab: 切換"),
			formatter.Dim("i: 使用者"),
			formatter.Dim("L: 登出"),
		)
	}
	if !viewCapturesInput(m.activeView()) {
		hints = append(hints, formatter.Dim("q: 離開"))
	}

	bar := strings.Join(hints, "  ")
	sepStyle := lipgloss.NewStyle().Foreground(formatter.ColorDim)
	sep := sepStyle.Render(strings.Repeat("─", max(m.state.Width, 20)))
	return sep + "\n" + bar
}
