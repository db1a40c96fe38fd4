package local_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Deleting a task removes the row and then rewrites every project that
// lists it. A failure on the rewrite must leave both untouched.
func TestDeleteTask_RollsBackWhenDetachFails(t *testing.T) {
	injected := errors.New("disk full")
	uow := &testutil.FailOnNthExecUoW{DB: testutil.NewTestDB(t), FailOn: 2, Err: injected}
	b, err := local.NewWithUoW(uow, local.WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)
	c := testutil.AdminClient(t, b)
	ctx := context.Background()

	task, err := c.Collection(local.TasksCollection).Create(ctx, backend.Record{"name": "A"})
	require.NoError(t, err)
	p, err := c.Collection(local.ProjectsCollection).Create(ctx, backend.Record{"name": "P", "own_tasks": []string{task.ID()}})
	require.NoError(t, err)

	events := make(chan backend.Event, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, c.Collection(local.TasksCollection).Subscribe(subCtx, "*", func(ev backend.Event) { events <- ev }))

	uow.Arm()
	err = c.Collection(local.TasksCollection).Delete(ctx, task.ID())
	uow.Disarm()
	require.ErrorIs(t, err, injected)

	_, err = c.Collection(local.TasksCollection).GetOne(ctx, task.ID(), backend.ListOptions{})
	require.NoError(t, err, "task survives the failed delete")
	got, err := c.Collection(local.ProjectsCollection).GetOne(ctx, p.ID(), backend.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{task.ID()}, got["own_tasks"])

	select {
	case ev := <-events:
		t.Fatalf("no event expected for a rolled back delete, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreate_RollsBackOnInsertFailure(t *testing.T) {
	injected := errors.New("disk full")
	uow := &testutil.FailOnNthExecUoW{DB: testutil.NewTestDB(t), FailOn: 1, Err: injected}
	b, err := local.NewWithUoW(uow, local.WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)
	c := testutil.AdminClient(t, b)
	ctx := context.Background()

	uow.Arm()
	_, err = c.Collection(local.ProjectsCollection).Create(ctx, backend.Record{"name": "P"})
	uow.Disarm()
	require.ErrorIs(t, err, injected)

	res, err := c.Collection(local.ProjectsCollection).GetList(ctx, 1, 10, backend.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalItems)
}
