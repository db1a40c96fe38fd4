package cli

import (
	"context"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// GoogleProvider is the OAuth2 provider offered on the login screen.
const GoogleProvider = "google"

type loginResultMsg struct {
	op      errclass.Op
	session domain.Session
	err     error
}

// loginView is the unauthenticated landing screen. The form keeps its
// values across failed attempts.
type loginView struct {
	state    *SharedState
	form     *huh.Form
	email    string
	password string
	busy     bool
}

func newLoginView(state *SharedState) *loginView {
	v := &loginView{state: state}
	v.form = v.buildForm()
	return v
}

func (v *loginView) buildForm() *huh.Form {
	return newForm(
		huh.NewInput().Title("Email").Value(&v.email).Validate(validateRequired),
		huh.NewInput().Title("密碼").EchoMode(huh.EchoModePassword).Value(&v.password).Validate(validateRequired),
	)
}

func (v *loginView) Init() tea.Cmd {
	return v.form.Init()
}

func (v *loginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		v.busy = false
		v.state.Loading.End()
		if msg.err != nil {
			v.state.App.Logger.Info("login failed", "op", msg.op, "error", msg.err)
			v.form = v.buildForm()
			return v, tea.Batch(v.form.Init(), v.state.Messages.Error(errclass.Message(msg.op, msg.err)))
		}
		return v, msgCmd(loggedInMsg{session: msg.session})

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		switch msg.String() {
		case "ctrl+g":
			return v, v.begin(errclass.OpOAuth, "等待 Google 授權...", func(ctx context.Context) (domain.Session, error) {
				return v.state.App.Auth.LoginWithOAuth(ctx, GoogleProvider)
			})
		case "ctrl+n":
			return v, pushView(newSignupView(v.state))
		}
	}

	if v.busy {
		return v, nil
	}
	form, cmd := v.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		v.form = f
	}
	if v.form.State == huh.StateCompleted {
		email, password := v.email, v.password
		return v, v.begin(errclass.OpLogin, "登入中...", func(ctx context.Context) (domain.Session, error) {
			return v.state.App.Auth.Login(ctx, email, password)
		})
	}
	return v, cmd
}

func (v *loginView) begin(op errclass.Op, label string, login func(context.Context) (domain.Session, error)) tea.Cmd {
	v.busy = true
	return tea.Batch(v.state.Loading.Begin(label), func() tea.Msg {
		sess, err := login(context.Background())
		return loginResultMsg{op: op, session: sess, err: err}
	})
}

func (v *loginView) View() string {
	if v.busy {
		return formatter.RenderBox("登入", formatter.Dim(v.email))
	}
	return formatter.RenderBox("登入", v.form.View())
}

func (v *loginView) ID() ViewID    { return ViewLogin }
func (v *loginView) Title() string { return "登入" }
func (v *loginView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "登入")),
		key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "Google 登入")),
		key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "註冊")),
		key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "離開")),
	}
}
