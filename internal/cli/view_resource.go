package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/controller"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// MsgUnsupported is shown when a screen does not offer the pressed action.
const MsgUnsupported = "此頁面不支援此操作"

// screen configures a resourceView for one record type.
type screen[T any] struct {
	id      ViewID
	title   string
	headers []string
	row     func(T) []string
	label   func(T) string
	form    func(*SharedState, pickers, T) (*huh.Form, func() T)
	pickers pickerSet
	ops     controller.Ops[T]
}

// resultMsg carries a finished controller request back to the view that
// issued it.
type resultMsg[T any] struct {
	ctl *controller.Controller[T]
	res controller.Result[T]
}

func (resultMsg[T]) broadcast() {}

// pickersMsg carries the option lists for a form ctl has open.
type pickersMsg[T any] struct {
	ctl   *controller.Controller[T]
	title string
	pk    pickers
}

func (pickersMsg[T]) broadcast() {}

// resourceView is the paginated table screen shared by every record type.
type resourceView[T any] struct {
	state  *SharedState
	screen screen[T]
	ctl    *controller.Controller[T]
	cursor int

	// ctx lives until the view leaves the stack.
	ctx    context.Context
	cancel context.CancelFunc
}

func newResourceView[T any](state *SharedState, s screen[T]) *resourceView[T] {
	ctx, cancel := context.WithCancel(context.Background())
	ctl := controller.New(s.ops,
		controller.WithPerPage[T](state.perPage()),
		controller.WithContext[T](ctx),
	)
	return &resourceView[T]{
		state:  state,
		screen: s,
		ctl:    ctl,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (v *resourceView[T]) Init() tea.Cmd {
	return v.run(v.ctl.BeginFetch(1))
}

func (v *resourceView[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg[T]:
		if msg.ctl != v.ctl {
			return v, nil
		}
		v.state.Loading.End()
		notice, applied := v.ctl.Complete(msg.res)
		if applied {
			v.clampCursor()
		}
		return v, v.state.notify(notice)

	case pickersMsg[T]:
		if msg.ctl != v.ctl {
			return v, nil
		}
		v.state.Loading.End()
		if v.ctl.Closed() || v.ctl.State() != controller.StateModalOpen {
			return v, nil
		}
		return v, v.openForm(msg.title, msg.pk)

	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *resourceView[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	items := v.ctl.Items()
	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(items)-1 {
			v.cursor++
		}
	case "[":
		return v.run(v.ctl.BeginPrev())
	case "]":
		return v.run(v.ctl.BeginNext())
	case "r":
		return v.run(v.ctl.BeginRefresh())
	case "a":
		if err := v.ctl.OpenAdd(); err != nil {
			return v.reject(err)
		}
		return v.prepareForm("新增" + v.screen.title)
	case "e", "enter":
		item, ok := v.selected()
		if !ok {
			return nil
		}
		if err := v.ctl.OpenEdit(item); err != nil {
			return v.reject(err)
		}
		return v.prepareForm("編輯" + v.screen.title)
	case "d":
		item, ok := v.selected()
		if !ok {
			return nil
		}
		if !v.ctl.CanDelete() {
			return v.state.Messages.Warning(MsgUnsupported)
		}
		return v.confirmDelete(item)
	}
	return nil
}

// run starts req on a command goroutine. Paging past either end is a no-op.
func (v *resourceView[T]) run(req controller.Request[T], err error) tea.Cmd {
	if err != nil {
		if errors.Is(err, controller.ErrPageOutOfRange) || errors.Is(err, controller.ErrClosed) {
			return nil
		}
		return v.reject(err)
	}
	ctl := v.ctl
	return tea.Batch(
		v.state.Loading.Begin(loadingLabel(req.Op())),
		func() tea.Msg { return resultMsg[T]{ctl: ctl, res: req.Run()} },
	)
}

func (v *resourceView[T]) reject(err error) tea.Cmd {
	if errors.Is(err, controller.ErrUnsupported) {
		return v.state.Messages.Warning(MsgUnsupported)
	}
	return v.state.Messages.Error(err.Error())
}

// prepareForm loads the screen's pickers on a command goroutine and opens
// the form when they arrive. Screens without pickers open it directly.
func (v *resourceView[T]) prepareForm(title string) tea.Cmd {
	need := v.screen.pickers
	if need == 0 {
		return v.openForm(title, pickers{})
	}
	ctx, app, ctl := v.ctx, v.state.App, v.ctl
	return tea.Batch(v.state.Loading.Begin("載入選項..."), func() tea.Msg {
		return pickersMsg[T]{ctl: ctl, title: title, pk: loadPickers(ctx, app, need)}
	})
}

func (v *resourceView[T]) openForm(title string, pk pickers) tea.Cmd {
	form, read := v.screen.form(v.state, pk, v.ctl.Draft())
	return startWizardCmd(v.state, title, form,
		func() tea.Cmd { return v.run(v.ctl.BeginSubmit(read())) },
		v.ctl.Cancel,
	)
}

func (v *resourceView[T]) confirmDelete(item T) tea.Cmd {
	confirmed := false
	form := newForm(
		huh.NewConfirm().
			Title(fmt.Sprintf("確定刪除「%s」？", v.screen.label(item))).
			Affirmative("刪除").
			Negative("取消").
			Value(&confirmed),
	)
	return startWizardCmd(v.state, "刪除"+v.screen.title, form, func() tea.Cmd {
		if !confirmed {
			return nil
		}
		return v.run(v.ctl.BeginDelete(item))
	}, nil)
}

func (v *resourceView[T]) selected() (T, bool) {
	items := v.ctl.Items()
	if v.cursor < 0 || v.cursor >= len(items) {
		var zero T
		return zero, false
	}
	return items[v.cursor], true
}

func (v *resourceView[T]) clampCursor() {
	n := len(v.ctl.Items())
	if v.cursor >= n {
		v.cursor = n - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *resourceView[T]) View() string {
	var b strings.Builder
	items := v.ctl.Items()
	switch {
	case len(items) > 0:
		b.WriteString(formatter.RenderSelectableTable(v.screen.headers, formatter.Rows(items, v.screen.row), v.cursor))
	case v.ctl.State() == controller.StateError && v.ctl.Failure() != nil:
		b.WriteString(formatter.StyleRed.Render(v.ctl.Failure().Message) + "\n")
	case v.ctl.Loading():
		b.WriteString(formatter.Dim("載入中...") + "\n")
	default:
		b.WriteString(formatter.Dim("沒有資料") + "\n")
	}
	b.WriteString("\n")
	b.WriteString(v.footer())
	return b.String()
}

func (v *resourceView[T]) footer() string {
	prev, next := "[ 上一頁", "] 下一頁"
	if !v.ctl.HasPrev() {
		prev = formatter.Dim(prev)
	}
	if !v.ctl.HasNext() {
		next = formatter.Dim(next)
	}
	return fmt.Sprintf("%s  %s  %s", prev, formatter.PageFooter(v.ctl.Page()), next)
}

func (v *resourceView[T]) Close() {
	v.cancel()
	v.ctl.Close()
}

func (v *resourceView[T]) ID() ViewID    { return v.screen.id }
func (v *resourceView[T]) Title() string { return v.screen.title }

func (v *resourceView[T]) ShortHelp() []key.Binding {
	hints := []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "選擇")),
		key.NewBinding(key.WithKeys("[", "]"), key.WithHelp("[/]", "換頁")),
	}
	if v.ctl.CanCreate() {
		hints = append(hints, key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "新增")))
	}
	if v.ctl.CanUpdate() {
		hints = append(hints, key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "編輯")))
	}
	if v.ctl.CanDelete() {
		hints = append(hints, key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "刪除")))
	}
	return append(hints, key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "重新整理")))
}

func loadingLabel(op errclass.Op) string {
	switch op {
	case errclass.OpCreate:
		return "新增中..."
	case errclass.OpUpdate:
		return "更新中..."
	case errclass.OpDelete:
		return "刪除中..."
	}
	return "載入中..."
}
