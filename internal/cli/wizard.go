package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// whmHuhTheme returns a custom huh theme using the formatter palette.
func whmHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Focused state: orange accent
	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.MultiSelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedPrefix = lipgloss.NewStyle().Foreground(formatter.ColorGreen).SetString("[x] ")
	t.Focused.UnselectedPrefix = lipgloss.NewStyle().Foreground(formatter.ColorDim).SetString("[ ] ")
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	// Blurred state: dimmed
	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func newForm(fields ...huh.Field) *huh.Form {
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(whmHuhTheme()).WithShowHelp(false)
}

// ── record forms ─────────────────────────────────────────────────────────────
//
// Each builder binds a huh form to a draft and returns a reader that turns
// the edited values back into a record. Fields the form does not show are
// carried over from the original record.

func projectForm(_ *SharedState, pk pickers, p domain.Project) (*huh.Form, func() domain.Project) {
	name, desc, note := p.Name, p.Description, p.Note
	start, end := p.StartTime.Date(), p.EndTime.Date()
	enable := p.Enable
	tasks := append([]string(nil), p.OwnTasks...)

	fields := []huh.Field{
		huh.NewInput().Title("專案名稱").Value(&name).Validate(validateRequired),
		huh.NewText().Title("描述").Value(&desc),
		huh.NewInput().Title("開始日期").Placeholder(domain.DateLayout).Value(&start).Validate(validateDate),
		huh.NewInput().Title("結束日期").Placeholder(domain.DateLayout).Value(&end).Validate(validateDate),
		huh.NewConfirm().Title("狀態").Affirmative("啟用").Negative("停用").Value(&enable),
		huh.NewText().Title("備註").Value(&note),
	}
	if opts := taskOptions(pk.tasks); len(opts) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().Title("任務").Options(opts...).Value(&tasks))
	}

	return newForm(fields...), func() domain.Project {
		out := p
		out.Name = strings.TrimSpace(name)
		out.Description = desc
		out.StartTime = mustDate(start)
		out.EndTime = mustDate(end)
		out.Enable = enable
		out.Note = note
		out.OwnTasks = tasks
		return out
	}
}

func taskForm(_ *SharedState, _ pickers, t domain.Task) (*huh.Form, func() domain.Task) {
	name, note := t.Name, t.Note
	typ := t.Type
	if typ == "" {
		typ = domain.TaskCommon
	}

	opts := make([]huh.Option[domain.TaskType], len(domain.TaskTypes))
	for i, tt := range domain.TaskTypes {
		opts[i] = huh.NewOption(tt.Label(), tt)
	}

	form := newForm(
		huh.NewInput().Title("任務名稱").Value(&name).Validate(validateRequired),
		huh.NewText().Title("備註").Value(&note),
		huh.NewSelect[domain.TaskType]().Title("類型").Options(opts...).Value(&typ),
	)
	return form, func() domain.Task {
		out := t
		out.Name = strings.TrimSpace(name)
		out.Note = note
		out.Type = typ
		return out
	}
}

func workForm(state *SharedState, pk pickers, w domain.Work) (*huh.Form, func() domain.Work) {
	name, note := w.Name, w.Note
	user, project, task := w.OwnUser, w.OwnProject, w.OwnTask
	if user == "" {
		user = state.App.Session.UserID()
	}
	hour := ""
	if w.Hour != 0 {
		hour = strconv.FormatFloat(w.Hour, 'f', -1, 64)
	}
	start, end := w.StartDate.Date(), w.EndDate.Date()

	fields := []huh.Field{
		huh.NewInput().Title("工時名稱").Value(&name).Validate(validateRequired),
	}
	if opts := userOptions(pk.users, user); len(opts) > 0 {
		fields = append(fields, huh.NewSelect[string]().Title("人員").Options(opts...).Value(&user))
	}
	fields = append(fields,
		huh.NewSelect[string]().Title("專案").Options(projectOptions(pk.projects)...).Value(&project),
		huh.NewSelect[string]().Title("任務").Options(withNone(taskOptions(pk.tasks))...).Value(&task),
		huh.NewText().Title("備註").Value(&note),
		huh.NewInput().Title("時數").Placeholder("0").Value(&hour).Validate(validateHour),
		huh.NewInput().Title("開始日期").Placeholder(domain.DateLayout).Value(&start).Validate(validateDate),
		huh.NewInput().Title("結束日期").Placeholder(domain.DateLayout).Value(&end).Validate(validateDate),
	)

	return newForm(fields...), func() domain.Work {
		out := w
		out.Name = strings.TrimSpace(name)
		out.OwnUser = user
		out.OwnProject = project
		out.OwnTask = task
		out.Note = note
		out.Hour, _ = strconv.ParseFloat(strings.TrimSpace(hour), 64)
		out.StartDate = mustDate(start)
		out.EndDate = mustDate(end)
		out.Expand = nil
		return out
	}
}

// userForm edits roles only.
func userForm(_ *SharedState, _ pickers, u domain.User) (*huh.Form, func() domain.User) {
	roles := make([]domain.Role, len(u.Roles))
	copy(roles, u.Roles)

	opts := make([]huh.Option[domain.Role], len(domain.Roles))
	for i, r := range domain.Roles {
		opts[i] = huh.NewOption(string(r), r)
	}

	form := newForm(
		huh.NewMultiSelect[domain.Role]().
			Title(fmt.Sprintf("%s 的角色", u.DisplayName())).
			Options(opts...).
			Value(&roles),
	)
	return form, func() domain.User {
		out := u
		out.Roles = roles
		return out
	}
}

// ── pickers ──────────────────────────────────────────────────────────────────

// pickerSet names the record lists a form offers as select options.
type pickerSet uint8

const (
	pickTasks pickerSet = 1 << iota
	pickProjects
	pickUsers
)

// pickers holds the records behind a form's select fields. A list that
// failed to load is empty and its picker is left out or shows only
// the current value.
type pickers struct {
	tasks    []domain.Task
	projects []domain.Project
	users    []domain.User
}

// loadPickers fetches the lists in need. It does backend I/O and runs on a
// command goroutine.
func loadPickers(ctx context.Context, app *App, need pickerSet) pickers {
	var (
		pk  pickers
		err error
	)
	if need&pickTasks != 0 {
		if pk.tasks, err = app.Tasks.All(ctx); err != nil {
			app.Logger.Warn("loading task picker", "error", err)
		}
	}
	if need&pickProjects != 0 {
		if pk.projects, err = app.Projects.All(ctx); err != nil {
			app.Logger.Warn("loading project picker", "error", err)
		}
	}
	if need&pickUsers != 0 {
		if pk.users, err = app.Users.All(ctx); err != nil {
			app.Logger.Warn("loading user picker", "error", err)
		}
	}
	return pk
}

func taskOptions(tasks []domain.Task) []huh.Option[string] {
	opts := make([]huh.Option[string], len(tasks))
	for i, t := range tasks {
		opts[i] = huh.NewOption(fmt.Sprintf("%s (%s)", t.Name, t.Type.Label()), t.ID)
	}
	return opts
}

func projectOptions(projects []domain.Project) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(projects))
	for _, p := range projects {
		opts = append(opts, huh.NewOption(p.Name, p.ID))
	}
	return withNone(opts)
}

// userOptions lists users for the owner picker, keeping current selectable
// even when it is missing from the list. No users means no picker.
func userOptions(users []domain.User, current string) []huh.Option[string] {
	if len(users) == 0 {
		return nil
	}
	opts := make([]huh.Option[string], 0, len(users)+1)
	found := current == ""
	for _, u := range users {
		opts = append(opts, huh.NewOption(u.DisplayName(), u.ID))
		found = found || u.ID == current
	}
	if !found {
		opts = append([]huh.Option[string]{huh.NewOption(current, current)}, opts...)
	}
	return opts
}

func withNone(opts []huh.Option[string]) []huh.Option[string] {
	return append([]huh.Option[string]{huh.NewOption("（無）", "")}, opts...)
}

// ── validators ───────────────────────────────────────────────────────────────

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("此欄位必填")
	}
	return nil
}

// validateDate accepts empty or a YYYY-MM-DD date.
func validateDate(s string) error {
	if _, err := domain.ParseDateTime(s); err != nil {
		return fmt.Errorf("日期格式為 %s", domain.DateLayout)
	}
	return nil
}

// validateHour accepts empty or a non-negative number.
func validateHour(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return fmt.Errorf("請輸入非負數字")
	}
	return nil
}

// mustDate parses a value that already passed validateDate.
func mustDate(s string) domain.DateTime {
	d, _ := domain.ParseDateTime(s)
	return d
}
