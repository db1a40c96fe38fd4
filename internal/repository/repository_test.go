package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	client := testutil.AdminClient(t, b)
	tasks := NewBackendTaskRepo(client)
	projects := NewBackendProjectRepo(client)

	task, err := tasks.Create(ctx, testutil.NewTestTask("Design"))
	require.NoError(t, err)

	created, err := projects.Create(ctx, testutil.NewTestProject("Apollo", testutil.WithOwnTasks(task.ID)))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Apollo", created.Name)
	assert.True(t, created.Enable)
	assert.Equal(t, []string{task.ID}, created.OwnTasks)
	assert.False(t, created.Created.IsZero())

	got, err := projects.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StartTime.Date(), got.StartTime.Date())

	got.Name = "Apollo II"
	got.Enable = false
	updated, err := projects.Update(ctx, got.ID, got)
	require.NoError(t, err)
	assert.Equal(t, "Apollo II", updated.Name)
	assert.False(t, updated.Enable)

	require.NoError(t, projects.Delete(ctx, created.ID))
	_, err = projects.Get(ctx, created.ID)
	assert.True(t, backend.IsNotFound(err))
}

func TestProjectRepo_ListNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	projects := NewBackendProjectRepo(testutil.AdminClient(t, b))

	for _, name := range []string{"p1", "p2", "p3"} {
		_, err := projects.Create(ctx, testutil.NewTestProject(name))
		require.NoError(t, err)
	}

	page1, err := projects.List(ctx, ListQuery{Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, "p3", page1.Items[0].Name)
	assert.Equal(t, "p2", page1.Items[1].Name)
	assert.Equal(t, 3, page1.TotalItems)
	assert.Equal(t, 2, page1.TotalPages)
	assert.True(t, page1.HasNext())

	page2, err := projects.List(ctx, ListQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "p1", page2.Items[0].Name)
	assert.False(t, page2.HasNext())

	again, err := projects.List(ctx, ListQuery{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, page1, again)
}

func TestTaskRepo_DefaultsTypeToCommon(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	tasks := NewBackendTaskRepo(testutil.AdminClient(t, b))

	created, err := tasks.Create(ctx, &domain.Task{Name: "Triage"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCommon, created.Type)

	urgent, err := tasks.Create(ctx, testutil.NewTestTask("Review", testutil.WithTaskType(domain.TaskUrgent)))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskUrgent, urgent.Type)
}

func TestWorkRepo_ListExpandsRelations(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	client, userID := testutil.UserClient(t, b, "amy@whm.dev", "Amy")

	project, err := NewBackendProjectRepo(client).Create(ctx, testutil.NewTestProject("Apollo"))
	require.NoError(t, err)
	task, err := NewBackendTaskRepo(client).Create(ctx, testutil.NewTestTask("Build"))
	require.NoError(t, err)

	works := NewBackendWorkRepo(client)
	_, err = works.Create(ctx, testutil.NewTestWork("Wiring",
		testutil.WithOwner(userID),
		testutil.WithProject(project.ID),
		testutil.WithTask(task.ID),
		testutil.WithHour(2.5)))
	require.NoError(t, err)

	page, err := works.List(ctx, ListQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	w := page.Items[0]
	assert.Equal(t, 2.5, w.Hour)
	require.NotNil(t, w.Expand)
	assert.Equal(t, "Amy", w.UserLabel())
	assert.Equal(t, "Apollo", w.ProjectLabel())
	assert.Equal(t, "Build", w.TaskLabel())
}

func TestWorkRepo_OtherUsersWorkIsHidden(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	amy, amyID := testutil.UserClient(t, b, "amy@whm.dev", "Amy")
	bob, _ := testutil.UserClient(t, b, "bob@whm.dev", "Bob")

	w, err := NewBackendWorkRepo(amy).Create(ctx, testutil.NewTestWork("Mine", testutil.WithOwner(amyID)))
	require.NoError(t, err)

	err = NewBackendWorkRepo(bob).Delete(ctx, w.ID)
	assert.True(t, backend.IsNotFound(err))
}

func TestUserRepo_UpdateRolesRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	admin := NewBackendUserRepo(testutil.AdminClient(t, b))
	amy, amyID := testutil.UserClient(t, b, "amy@whm.dev", "Amy")

	_, err := NewBackendUserRepo(amy).UpdateRoles(ctx, amyID, []domain.Role{domain.RoleAdmin})
	assert.True(t, backend.IsNotFound(err))

	u, err := admin.UpdateRoles(ctx, amyID, []domain.Role{domain.RoleNormal, domain.RoleOther})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleNormal, domain.RoleOther}, u.Roles)
	assert.Equal(t, "Normal, Other", u.RoleList())

	page, err := admin.List(ctx, ListQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
}

func TestRepo_UnauthenticatedListFails(t *testing.T) {
	b := testutil.NewTestBackend(t)
	_, err := NewBackendTaskRepo(b.NewClient()).List(context.Background(), ListQuery{Page: 1, PerPage: 10})
	require.Error(t, err)
	assert.Equal(t, 401, backend.StatusOf(err))
	assert.Contains(t, err.Error(), "listing tasks")
}

func TestRepos_RoundTripOptionalFields(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewTestBackend(t)
	client := testutil.AdminClient(t, b)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	p, err := NewBackendProjectRepo(client).Create(ctx, testutil.NewTestProject("Q1",
		testutil.WithSchedule(start, end),
		testutil.WithDisabled(),
		testutil.WithProjectNote("quarterly"),
	))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", p.StartTime.Date())
	assert.Equal(t, "2024-03-31", p.EndTime.Date())
	assert.False(t, p.Enable)
	assert.Equal(t, "quarterly", p.Note)

	task, err := NewBackendTaskRepo(client).Create(ctx, testutil.NewTestTask("Audit", testutil.WithTaskNote("yearly")))
	require.NoError(t, err)
	assert.Equal(t, "yearly", task.Note)

	w, err := NewBackendWorkRepo(client).Create(ctx, testutil.NewTestWork("Audit prep", testutil.WithWorkDates(start, start.AddDate(0, 0, 2))))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", w.StartDate.Date())
	assert.Equal(t, "2024-03-03", w.EndDate.Date())
}
