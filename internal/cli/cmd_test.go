package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/config"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/aitteam/whm/internal/repository"
	"github.com/aitteam/whm/internal/service"
	"github.com/aitteam/whm/internal/session"
	"github.com/aitteam/whm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp wires a full App over client with an in-memory session.
func newTestApp(t *testing.T, client backend.Client) *App {
	t.Helper()
	store, err := session.Open(session.NewMemoryStorage())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.PageSize = 5

	return &App{
		Auth:     service.NewAuthService(client, store, service.OAuthConfig{}),
		Session:  store,
		Projects: service.NewProjectService(repository.NewBackendProjectRepo(client)),
		Tasks:    service.NewTaskService(repository.NewBackendTaskRepo(client)),
		Works:    service.NewWorkService(repository.NewBackendWorkRepo(client), store),
		Users:    service.NewUserService(repository.NewBackendUserRepo(client)),
		Client:   client,
		Config:   cfg,
	}
}

// testApp wires an App backed by a local in-memory backend. The admin
// account exists but nobody is signed in.
func testApp(t *testing.T) (*App, *local.Backend) {
	t.Helper()
	b := testutil.NewTestBackend(t)
	_, err := b.CreateAdmin(context.Background(), testutil.AdminEmail, testutil.AdminPassword, "Root")
	require.NoError(t, err)

	app := newTestApp(t, b.NewClient())
	app.Factory = b.Factory()
	app.Local = b
	return app, b
}

// adminApp is testApp signed in as the admin.
func adminApp(t *testing.T) (*App, *local.Backend) {
	t.Helper()
	app, b := testApp(t)
	_, err := app.Auth.Login(context.Background(), testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)
	return app, b
}

func seedProject(t *testing.T, app *App, name string) domain.Project {
	t.Helper()
	p, err := app.Projects.Create(context.Background(), testutil.NewTestProject(name))
	require.NoError(t, err)
	return *p
}

func seedTask(t *testing.T, app *App, name string, tt domain.TaskType) domain.Task {
	t.Helper()
	task, err := app.Tasks.Create(context.Background(), testutil.NewTestTask(name, testutil.WithTaskType(tt)))
	require.NoError(t, err)
	return *task
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// --- auth commands ---

func TestLoginCmd_PersistsSession(t *testing.T) {
	app, _ := testApp(t)

	out, err := executeCmd(t, app, "login", "--email", testutil.AdminEmail, "--password", testutil.AdminPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "已登入")
	assert.True(t, app.Session.Authenticated())
	assert.Equal(t, domain.LoginNormal, app.Session.LoginType())
}

func TestLoginCmd_BadCredentials(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "login", "--email", testutil.AdminEmail, "--password", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, errclass.MsgLoginFailed, err.Error())
	assert.False(t, app.Session.Authenticated())
}

func TestLoginCmd_RequiresCredentials(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "login", "--email", testutil.AdminEmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}

func TestSignupCmd_DoesNotLogIn(t *testing.T) {
	app, _ := testApp(t)

	out, err := executeCmd(t, app, "signup", "--email", "new@whm.dev", "--name", "New", "--password", "longenough")
	require.NoError(t, err)
	assert.Contains(t, out, MsgSignedUp)
	assert.False(t, app.Session.Authenticated())

	_, err = executeCmd(t, app, "login", "--email", "new@whm.dev", "--password", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "New", app.Session.UserName())
}

func TestSignupCmd_ClassifiesValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short password", []string{"--email", "a@whm.dev", "--password", "abcd"}, errclass.MsgPasswordLength},
		{"bad email", []string{"--email", "not-an-email", "--password", "longenough"}, errclass.MsgInvalidEmail},
		{"mismatch", []string{"--email", "b@whm.dev", "--password", "longenough", "--password-confirm", "different1"}, errclass.MsgPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := testApp(t)
			_, err := executeCmd(t, app, append([]string{"signup"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestLogoutCmd_ClearsSession(t *testing.T) {
	app, _ := adminApp(t)
	require.True(t, app.Session.Authenticated())

	out, err := executeCmd(t, app, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, MsgLoggedOut)
	assert.False(t, app.Session.Authenticated())
	assert.Empty(t, app.Client.Token())
}

func TestWhoamiCmd(t *testing.T) {
	app, _ := adminApp(t)

	out, err := executeCmd(t, app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, testutil.AdminEmail)
	assert.Contains(t, out, "Admin")
}

func TestWhoamiCmd_NotLoggedIn(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

// --- resource commands ---

func TestProjectCmd_AddListUpdateRemove(t *testing.T) {
	app, _ := adminApp(t)
	ctx := context.Background()

	out, err := executeCmd(t, app, "project", "add", "--name", "Apollo", "--description", "moon", "--start", "2024-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "新增成功")

	out, err = executeCmd(t, app, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Apollo")
	assert.Contains(t, out, "page 1 / 1")

	page, err := app.Projects.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	p := page.Items[0]
	assert.Equal(t, "2024-01-02", p.StartTime.Date())
	assert.True(t, p.Enable)

	out, err = executeCmd(t, app, "project", "update", p.ID, "--name", "Artemis", "--enable=false")
	require.NoError(t, err)
	assert.Contains(t, out, "更新成功")

	got, err := app.Projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Artemis", got.Name)
	assert.Equal(t, "moon", got.Description, "unset flags keep their value")
	assert.False(t, got.Enable)

	out, err = executeCmd(t, app, "project", "rm", p.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "刪除成功")

	page, err = app.Projects.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestProjectCmd_ListPaginates(t *testing.T) {
	app, _ := adminApp(t)
	for _, name := range []string{"P1", "P2", "P3"} {
		seedProject(t, app, name)
	}

	out, err := executeCmd(t, app, "project", "list", "--per-page", "2", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "page 2 / 2")
	assert.Contains(t, out, "3 items")
}

func TestProjectCmd_AddRequiresName(t *testing.T) {
	app, _ := adminApp(t)

	_, err := executeCmd(t, app, "project", "add", "--note", "nameless")
	require.Error(t, err)

	page, err := app.Projects.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestResourceCmd_RequiresLogin(t *testing.T) {
	app, _ := testApp(t)

	for _, sub := range []string{"project", "task", "work", "user"} {
		_, err := executeCmd(t, app, sub, "list")
		assert.ErrorIs(t, err, errNotLoggedIn, sub)
	}
}

func TestTaskCmd_TypeFlag(t *testing.T) {
	app, _ := adminApp(t)

	_, err := executeCmd(t, app, "task", "add", "--name", "Review", "--type", "urgent")
	require.NoError(t, err)

	page, err := app.Tasks.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.TaskUrgent, page.Items[0].Type)

	_, err = executeCmd(t, app, "task", "add", "--name", "Bad", "--type", "later")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task type")
}

func TestWorkCmd_DefaultsOwnerAndShowsRelations(t *testing.T) {
	app, _ := adminApp(t)
	p := seedProject(t, app, "Apollo")
	task := seedTask(t, app, "Coding", domain.TaskCommon)

	_, err := executeCmd(t, app, "work", "add", "--name", "Day one", "--project", p.ID, "--task", task.ID, "--hour", "2.5")
	require.NoError(t, err)

	page, err := app.Works.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	w := page.Items[0]
	assert.Equal(t, app.Session.UserID(), w.OwnUser)
	assert.Equal(t, 2.5, w.Hour)

	out, err := executeCmd(t, app, "work", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Apollo")
	assert.Contains(t, out, "Coding")
}

func TestWorkCmd_OtherUsersWorkIsForbidden(t *testing.T) {
	admin, b := adminApp(t)
	p := seedProject(t, admin, "Apollo")
	w, err := admin.Works.Create(context.Background(), testutil.NewTestWork("Admin work", testutil.WithProject(p.ID)))
	require.NoError(t, err)

	testutil.SignupUser(t, b, "bob@whm.dev", "Bob")
	bob := newTestApp(t, b.NewClient())
	_, err = bob.Auth.Login(context.Background(), "bob@whm.dev", testutil.UserPassword)
	require.NoError(t, err)

	_, err = executeCmd(t, bob, "work", "rm", w.ID)
	require.Error(t, err)
	assert.Equal(t, errclass.MsgForbidden, err.Error())
}

func TestUserCmd_ListAndRoles(t *testing.T) {
	app, b := adminApp(t)
	rec := testutil.SignupUser(t, b, "bob@whm.dev", "Bob")

	out, err := executeCmd(t, app, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "Root")

	out, err = executeCmd(t, app, "user", "roles", rec.ID(), "--role", "normal", "--role", "Other")
	require.NoError(t, err)
	assert.Contains(t, out, "更新成功")

	u, err := app.Users.Get(context.Background(), rec.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Role{domain.RoleNormal, domain.RoleOther}, u.Roles)
}

func TestUserCmd_HasNoAddOrRemove(t *testing.T) {
	app, _ := adminApp(t)

	cmd, _, err := NewRootCmd(app).Find([]string{"user"})
	require.NoError(t, err)
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "roles"}, names)
}

// --- backend bootstrap ---

func TestInitAdminCmd(t *testing.T) {
	b := testutil.NewTestBackend(t)
	app := newTestApp(t, b.NewClient())
	app.Local = b

	out, err := executeCmd(t, app, "backend", "init-admin", "--email", "boss@whm.dev", "--password", "bosspass1", "--name", "Boss")
	require.NoError(t, err)
	assert.Contains(t, out, "boss@whm.dev")

	_, err = executeCmd(t, app, "login", "--email", "boss@whm.dev", "--password", "bosspass1")
	require.NoError(t, err)
	u, err := app.Auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.True(t, u.HasRole(domain.RoleAdmin))
}

func TestInitAdminCmd_NeedsLocalBackend(t *testing.T) {
	b := testutil.NewTestBackend(t)
	app := newTestApp(t, b.NewClient())

	_, err := executeCmd(t, app, "backend", "init-admin", "--email", "boss@whm.dev", "--password", "bosspass1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local backend")
}

func TestWatchUsersCmd_RequiresLogin(t *testing.T) {
	app, _ := testApp(t)

	_, err := executeCmd(t, app, "watch", "users", "--count", "1")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestRootCmd_NonInteractivePrintsHelp(t *testing.T) {
	app, _ := testApp(t)
	app.IsInteractive = func() bool { return false }

	out, err := executeCmd(t, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Work-hour management dashboard")
	assert.Contains(t, out, "project")
}
