package cli

import (
	"context"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/controller"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/service"
)

// resourceOps adapts a ResourceService to controller operations.
func resourceOps[T any](svc service.ResourceService[T], id func(T) string, blank func() T) controller.Ops[T] {
	return controller.Ops[T]{
		Fetch: svc.List,
		Create: func(ctx context.Context, item T) error {
			_, err := svc.Create(ctx, &item)
			return err
		},
		Update: func(ctx context.Context, id string, item T) error {
			_, err := svc.Update(ctx, id, &item)
			return err
		},
		Delete: svc.Delete,
		ID:     id,
		Blank:  blank,
	}
}

func projectScreen(app *App) screen[domain.Project] {
	return screen[domain.Project]{
		id:      ViewProjects,
		title:   "專案",
		headers: formatter.ProjectHeaders,
		row:     formatter.ProjectRow,
		label:   func(p domain.Project) string { return p.Name },
		form:    projectForm,
		pickers: pickTasks,
		ops: resourceOps(app.Projects,
			func(p domain.Project) string { return p.ID },
			func() domain.Project { return domain.Project{Enable: true} },
		),
	}
}

func taskScreen(app *App) screen[domain.Task] {
	return screen[domain.Task]{
		id:      ViewTasks,
		title:   "任務",
		headers: formatter.TaskHeaders,
		row:     formatter.TaskRow,
		label:   func(t domain.Task) string { return t.Name },
		form:    taskForm,
		ops: resourceOps(app.Tasks,
			func(t domain.Task) string { return t.ID },
			func() domain.Task { return domain.Task{Type: domain.TaskCommon} },
		),
	}
}

func workScreen(app *App) screen[domain.Work] {
	return screen[domain.Work]{
		id:      ViewWorks,
		title:   "工時",
		headers: formatter.WorkHeaders,
		row:     formatter.WorkRow,
		label:   func(w domain.Work) string { return w.Name },
		form:    workForm,
		pickers: pickUsers | pickProjects | pickTasks,
		ops: resourceOps(app.Works,
			func(w domain.Work) string { return w.ID },
			func() domain.Work { return domain.Work{} },
		),
	}
}

// userScreen edits roles only. Accounts are created through signup and
// never deleted from the dashboard.
func userScreen(app *App) screen[domain.User] {
	return screen[domain.User]{
		id:      ViewUsers,
		title:   "人員",
		headers: formatter.UserHeaders,
		row:     formatter.UserRow,
		label:   func(u domain.User) string { return u.DisplayName() },
		form:    userForm,
		ops: controller.Ops[domain.User]{
			Fetch: app.Users.List,
			Update: func(ctx context.Context, id string, u domain.User) error {
				_, err := app.Users.UpdateRoles(ctx, id, u.Roles)
				return err
			},
			ID:    func(u domain.User) string { return u.ID },
			Blank: func() domain.User { return domain.User{} },
		},
	}
}

// newSectionView builds the screen for a sidebar section.
func newSectionView(state *SharedState, id ViewID) View {
	app := state.App
	switch id {
	case ViewTasks:
		return newResourceView(state, taskScreen(app))
	case ViewWorks:
		return newResourceView(state, workScreen(app))
	case ViewUsers:
		return newResourceView(state, userScreen(app))
	default:
		return newResourceView(state, projectScreen(app))
	}
}
