package cli

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// wizardView wraps a huh.Form as a View on the navigation stack.
// When the form completes, it sends a wizardCompleteMsg with the
// done callback's result; esc runs the cancel callback instead.
type wizardView struct {
	state    *SharedState
	form     *huh.Form
	titleStr string
	done     func() tea.Cmd
	cancel   func()
	finished bool
}

func newWizardView(state *SharedState, title string, form *huh.Form, done func() tea.Cmd, cancel func()) *wizardView {
	return &wizardView{
		state:    state,
		form:     form,
		titleStr: title,
		done:     done,
		cancel:   cancel,
	}
}

func (v *wizardView) Init() tea.Cmd {
	return v.form.Init()
}

func (v *wizardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Messages that arrive before the wizard is popped are dropped.
	if v.finished {
		return v, nil
	}
	// Escape cancels the wizard.
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		v.finished = true
		if v.cancel != nil {
			v.cancel()
		}
		return v, msgCmd(wizardCompleteMsg{})
	}

	form, cmd := v.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		v.form = f
	}

	if v.form.State == huh.StateCompleted {
		v.finished = true
		var doneCmd tea.Cmd
		if v.done != nil {
			doneCmd = v.done()
		}
		return v, msgCmd(wizardCompleteMsg{nextCmd: doneCmd})
	}

	return v, cmd
}

func (v *wizardView) View() string {
	return v.form.View()
}

func (v *wizardView) ID() ViewID    { return ViewForm }
func (v *wizardView) Title() string { return v.titleStr }
func (v *wizardView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "下一步")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "取消")),
	}
}

// startWizardCmd pushes a wizardView for form.
func startWizardCmd(state *SharedState, title string, form *huh.Form, done func() tea.Cmd, cancel func()) tea.Cmd {
	return pushView(newWizardView(state, title, form, done, cancel))
}
