package cli

import (
	"context"
	"testing"

	"github.com/aitteam/whm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPickers_FetchesOnlyWhatIsNeeded(t *testing.T) {
	app, _ := adminApp(t)
	app.logger()
	p := seedProject(t, app, "Apollo")
	task := seedTask(t, app, "Review", domain.TaskUrgent)

	pk := loadPickers(context.Background(), app, pickTasks|pickProjects)

	require.Len(t, pk.tasks, 1)
	assert.Equal(t, task.ID, pk.tasks[0].ID)
	require.Len(t, pk.projects, 1)
	assert.Equal(t, p.ID, pk.projects[0].ID)
	assert.Empty(t, pk.users, "users were not requested")
}

func TestLoadPickers_CancelledContextLeavesListsEmpty(t *testing.T) {
	app, _ := adminApp(t)
	app.logger()
	seedProject(t, app, "Apollo")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pk := loadPickers(ctx, app, pickTasks|pickProjects|pickUsers)

	assert.Empty(t, pk.tasks)
	assert.Empty(t, pk.projects)
	assert.Empty(t, pk.users)
}

func TestUserOptions_KeepsCurrentOwner(t *testing.T) {
	users := []domain.User{{ID: "u1", Name: "Alice"}}

	assert.Nil(t, userOptions(nil, "u9"), "no list, no picker")
	assert.Len(t, userOptions(users, "u1"), 1)

	opts := userOptions(users, "u9")
	require.Len(t, opts, 2)
	assert.Equal(t, "u9", opts[0].Value)
}

func TestProjectOptions_StartsWithNone(t *testing.T) {
	opts := projectOptions([]domain.Project{{ID: "p1", Name: "Apollo"}})

	require.Len(t, opts, 2)
	assert.Equal(t, "", opts[0].Value)
	assert.Equal(t, "p1", opts[1].Value)
}
