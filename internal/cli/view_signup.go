package cli

import (
	"context"
	"strings"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/aitteam/whm/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// MsgSignedUp is shown after registration. New accounts must be enabled by
// an administrator, so signup does not log in.
const MsgSignedUp = "註冊成功，請通知管理員開通帳號"

type signupResultMsg struct {
	err error
}

type signupView struct {
	state *SharedState
	form  *huh.Form
	in    service.SignupInput
	busy  bool
}

func newSignupView(state *SharedState) *signupView {
	v := &signupView{state: state}
	v.form = v.buildForm()
	return v
}

func (v *signupView) buildForm() *huh.Form {
	return newForm(
		huh.NewInput().Title("帳號").Value(&v.in.Username),
		huh.NewInput().Title("Email").Value(&v.in.Email).Validate(validateRequired),
		huh.NewInput().Title("名稱").Value(&v.in.Name),
		huh.NewInput().Title("密碼").EchoMode(huh.EchoModePassword).Value(&v.in.Password),
		huh.NewInput().Title("確認密碼").EchoMode(huh.EchoModePassword).Value(&v.in.PasswordConfirm),
	)
}

func (v *signupView) Init() tea.Cmd {
	return v.form.Init()
}

func (v *signupView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case signupResultMsg:
		v.busy = false
		v.state.Loading.End()
		if msg.err != nil {
			v.form = v.buildForm()
			return v, tea.Batch(v.form.Init(), v.state.Messages.Error(errclass.Message(errclass.OpSignup, msg.err)))
		}
		return v, tea.Batch(popView(), v.state.Messages.Success(MsgSignedUp))

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		if msg.Type == tea.KeyEsc {
			return v, popView()
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
		return v, v.submit()
	}
	return v, cmd
}

func (v *signupView) submit() tea.Cmd {
	v.busy = true
	in := v.in
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	auth := v.state.App.Auth
	return tea.Batch(v.state.Loading.Begin("註冊中..."), func() tea.Msg {
		_, err := auth.Signup(context.Background(), in)
		return signupResultMsg{err: err}
	})
}

func (v *signupView) View() string {
	if v.busy {
		return formatter.RenderBox("註冊", formatter.Dim(v.in.Email))
	}
	return formatter.RenderBox("註冊", v.form.View())
}

func (v *signupView) ID() ViewID    { return ViewSignup }
func (v *signupView) Title() string { return "註冊" }
func (v *signupView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "下一步")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "返回登入")),
	}
}
