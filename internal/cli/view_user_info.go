package cli

import (
	"context"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type userInfoMsg struct {
	user *domain.User
	err  error
}

// userInfoView shows the signed-in account, fetched fresh on open.
type userInfoView struct {
	state    *SharedState
	viewport viewport.Model
	user     *domain.User
	err      error
}

func newUserInfoView(state *SharedState) *userInfoView {
	vp := viewport.New(max(state.Width, 40), state.ContentHeight())
	vp.SetContent(formatter.Dim("載入中..."))
	return &userInfoView{state: state, viewport: vp}
}

func (v *userInfoView) Init() tea.Cmd {
	auth := v.state.App.Auth
	return func() tea.Msg {
		u, err := auth.CurrentUser(context.Background())
		return userInfoMsg{user: u, err: err}
	}
}

func (v *userInfoView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case userInfoMsg:
		v.user, v.err = msg.user, msg.err
		if msg.err != nil {
			text := errclass.Message(errclass.OpFetch, msg.err)
			v.viewport.SetContent(formatter.StyleRed.Render(text))
			return v, v.state.Messages.Error(text)
		}
		v.viewport.SetContent(formatter.FormatUserInfo(msg.user, v.state.App.Session.LoginType()))
		return v, nil
	case tea.WindowSizeMsg:
		v.viewport.Width = max(msg.Width, 40)
		v.viewport.Height = v.state.ContentHeight()
		return v, nil
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *userInfoView) View() string {
	return v.viewport.View()
}

func (v *userInfoView) ID() ViewID    { return ViewUserInfo }
func (v *userInfoView) Title() string { return "使用者資訊" }
func (v *userInfoView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "關閉")),
	}
}
