package cli

import (
	"context"
	"fmt"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/controller"
	"github.com/aitteam/whm/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// recordFlags registers the editable fields of T on a flag set and returns
// a function that copies the flags the user set onto a record.
type recordFlags[T any] func(fs *pflag.FlagSet) func(fs *pflag.FlagSet, item *T) error

// resourceCommand builds "list", "add", "update" and "rm" for one record
// type. Every subcommand drives the same controller the TUI screen uses.
type resourceCommand[T any] struct {
	use    string
	short  string
	screen func(*App) screen[T]
	get    func(ctx context.Context, id string) (*T, error)
	flags  recordFlags[T]
}

func (rc resourceCommand[T]) build(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   rc.use,
		Short: rc.short,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return requireLogin(app)
		},
	}

	cmd.AddCommand(rc.listCmd(app))
	s := rc.screen(app)
	if s.ops.Create != nil {
		cmd.AddCommand(rc.addCmd(app))
	}
	if s.ops.Update != nil {
		cmd.AddCommand(rc.updateCmd(app))
	}
	if s.ops.Delete != nil {
		cmd.AddCommand(rc.removeCmd(app))
	}
	return cmd
}

func (rc resourceCommand[T]) controller(app *App, perPage int) *controller.Controller[T] {
	if perPage <= 0 {
		perPage = app.Config.PageSize
	}
	return controller.New(rc.screen(app).ops, controller.WithPerPage[T](perPage))
}

func (rc resourceCommand[T]) listCmd(app *App) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl := rc.controller(app, perPage)
			if _, err := ctl.Do(ctl.BeginFetch(page)); err != nil {
				return err
			}
			s := rc.screen(app)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPage(s.headers, ctl.Page(), s.row))
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Records per page (default from config)")

	return cmd
}

func (rc resourceCommand[T]) addCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
	}
	apply := rc.flags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctl := rc.controller(app, 0)
		if err := ctl.OpenAdd(); err != nil {
			return err
		}
		draft := ctl.Draft()
		if err := apply(cmd.Flags(), &draft); err != nil {
			ctl.Cancel()
			return err
		}
		notice, err := ctl.Do(ctl.BeginSubmit(draft))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notice.Text)
		return nil
	}
	return cmd
}

func (rc resourceCommand[T]) updateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a record",
		Args:  cobra.ExactArgs(1),
	}
	apply := rc.flags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		item, err := rc.get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s %s: %w", rc.use, args[0], err)
		}
		ctl := rc.controller(app, 0)
		if err := ctl.OpenEdit(*item); err != nil {
			return err
		}
		draft := ctl.Draft()
		if err := apply(cmd.Flags(), &draft); err != nil {
			ctl.Cancel()
			return err
		}
		notice, err := ctl.Do(ctl.BeginSubmit(draft))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notice.Text)
		return nil
	}
	return cmd
}

func (rc resourceCommand[T]) removeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			item, err := rc.get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s %s: %w", rc.use, args[0], err)
			}
			ctl := rc.controller(app, 0)
			notice, err := ctl.Do(ctl.BeginDelete(*item))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice.Text)
			return nil
		},
	}
}

// ── per-record flags ─────────────────────────────────────────────────────────

func dateFlag(fs *pflag.FlagSet, name string, dst *domain.DateTime) error {
	if !fs.Changed(name) {
		return nil
	}
	raw, _ := fs.GetString(name)
	d, err := domain.ParseDateTime(raw)
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	*dst = d
	return nil
}

func stringFlag(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		*dst, _ = fs.GetString(name)
	}
}

func projectFlags(fs *pflag.FlagSet) func(*pflag.FlagSet, *domain.Project) error {
	fs.String("name", "", "Project name")
	fs.String("description", "", "Description")
	fs.String("start", "", "Start date (YYYY-MM-DD)")
	fs.String("end", "", "End date (YYYY-MM-DD)")
	fs.Bool("enable", true, "Whether the project is enabled")
	fs.String("note", "", "Note")
	fs.StringSlice("task", nil, "Task ID owned by the project (repeatable)")

	return func(fs *pflag.FlagSet, p *domain.Project) error {
		stringFlag(fs, "name", &p.Name)
		stringFlag(fs, "description", &p.Description)
		stringFlag(fs, "note", &p.Note)
		if fs.Changed("enable") {
			p.Enable, _ = fs.GetBool("enable")
		}
		if fs.Changed("task") {
			p.OwnTasks, _ = fs.GetStringSlice("task")
		}
		if err := dateFlag(fs, "start", &p.StartTime); err != nil {
			return err
		}
		return dateFlag(fs, "end", &p.EndTime)
	}
}

func taskFlags(fs *pflag.FlagSet) func(*pflag.FlagSet, *domain.Task) error {
	fs.String("name", "", "Task name")
	fs.String("note", "", "Note")
	fs.String("type", "", "COMMON, URGENT or IMPORTANT")

	return func(fs *pflag.FlagSet, t *domain.Task) error {
		stringFlag(fs, "name", &t.Name)
		stringFlag(fs, "note", &t.Note)
		if fs.Changed("type") {
			raw, _ := fs.GetString("type")
			tt, err := domain.ParseTaskType(raw)
			if err != nil {
				return err
			}
			t.Type = tt
		}
		return nil
	}
}

func workFlags(fs *pflag.FlagSet) func(*pflag.FlagSet, *domain.Work) error {
	fs.String("name", "", "Work name")
	fs.String("user", "", "Owner user ID (defaults to you)")
	fs.String("project", "", "Project ID")
	fs.String("task", "", "Task ID")
	fs.String("note", "", "Note")
	fs.Float64("hour", 0, "Hours spent")
	fs.String("start", "", "Start date (YYYY-MM-DD)")
	fs.String("end", "", "End date (YYYY-MM-DD)")

	return func(fs *pflag.FlagSet, w *domain.Work) error {
		stringFlag(fs, "name", &w.Name)
		stringFlag(fs, "user", &w.OwnUser)
		stringFlag(fs, "project", &w.OwnProject)
		stringFlag(fs, "task", &w.OwnTask)
		stringFlag(fs, "note", &w.Note)
		if fs.Changed("hour") {
			w.Hour, _ = fs.GetFloat64("hour")
		}
		w.Expand = nil
		if err := dateFlag(fs, "start", &w.StartDate); err != nil {
			return err
		}
		return dateFlag(fs, "end", &w.EndDate)
	}
}

func userFlags(fs *pflag.FlagSet) func(*pflag.FlagSet, *domain.User) error {
	fs.StringSlice("role", nil, "Admin, Normal or Other (repeatable)")

	return func(fs *pflag.FlagSet, u *domain.User) error {
		raw, _ := fs.GetStringSlice("role")
		roles := make([]domain.Role, 0, len(raw))
		for _, s := range raw {
			r, err := domain.ParseRole(s)
			if err != nil {
				return err
			}
			roles = append(roles, r)
		}
		u.Roles = roles
		return nil
	}
}

// ── commands ─────────────────────────────────────────────────────────────────

func newProjectCmd(app *App) *cobra.Command {
	return resourceCommand[domain.Project]{
		use:    "project",
		short:  "Manage projects",
		screen: projectScreen,
		get:    func(ctx context.Context, id string) (*domain.Project, error) { return app.Projects.Get(ctx, id) },
		flags:  projectFlags,
	}.build(app)
}

func newTaskCmd(app *App) *cobra.Command {
	return resourceCommand[domain.Task]{
		use:    "task",
		short:  "Manage tasks",
		screen: taskScreen,
		get:    func(ctx context.Context, id string) (*domain.Task, error) { return app.Tasks.Get(ctx, id) },
		flags:  taskFlags,
	}.build(app)
}

func newWorkCmd(app *App) *cobra.Command {
	return resourceCommand[domain.Work]{
		use:    "work",
		short:  "Manage work-hour entries",
		screen: workScreen,
		get:    func(ctx context.Context, id string) (*domain.Work, error) { return app.Works.Get(ctx, id) },
		flags:  workFlags,
	}.build(app)
}

// newUserCmd exposes the role editor as "user roles ID --role R".
func newUserCmd(app *App) *cobra.Command {
	cmd := resourceCommand[domain.User]{
		use:    "user",
		short:  "List users and edit their roles",
		screen: userScreen,
		get:    func(ctx context.Context, id string) (*domain.User, error) { return app.Users.Get(ctx, id) },
		flags:  userFlags,
	}.build(app)
	for _, sub := range cmd.Commands() {
		if sub.Name() == "update" {
			sub.Use = "roles ID"
			sub.Short = "Replace the roles of a user"
		}
	}
	return cmd
}
