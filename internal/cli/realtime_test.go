package cli

import (
	"testing"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/testutil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithin(t *testing.T, cmd tea.Cmd, d time.Duration) tea.Msg {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(d):
		t.Fatal("command did not return in time")
		return nil
	}
}

func TestUserFeed_DeliversSignup(t *testing.T) {
	b := testutil.NewTestBackend(t)
	admin := testutil.AdminClient(t, b)

	feed, err := startUserFeed(admin)
	require.NoError(t, err)
	t.Cleanup(feed.stop)

	testutil.SignupUser(t, b, "dave@whm.dev", "Dave")

	msg := runWithin(t, feed.next(), 2*time.Second)
	ev, ok := msg.(userEventMsg)
	require.True(t, ok, "got %T", msg)
	assert.Same(t, feed, ev.feed)
	assert.Equal(t, backend.ActionCreate, ev.event.Action)
	assert.Equal(t, "Dave", newUserName(ev.event))
}

func TestUserFeed_RequiresLogin(t *testing.T) {
	b := testutil.NewTestBackend(t)

	_, err := startUserFeed(b.NewClient())
	assert.Error(t, err)
}

func TestUserFeed_StoppedFeedYieldsNothing(t *testing.T) {
	b := testutil.NewTestBackend(t)

	feed, err := startUserFeed(testutil.AdminClient(t, b))
	require.NoError(t, err)
	feed.stop()
	feed.stop()

	assert.Nil(t, runWithin(t, feed.next(), time.Second))
}

func TestNewUserName(t *testing.T) {
	tests := []struct {
		name string
		ev   backend.Event
		want string
	}{
		{"created with name", backend.Event{Action: backend.ActionCreate, Record: backend.Record{"id": "u1", "name": "Eve"}}, "Eve"},
		{"created without name", backend.Event{Action: backend.ActionCreate, Record: backend.Record{"id": "u1", "username": "eve"}}, "eve"},
		{"updated", backend.Event{Action: backend.ActionUpdate, Record: backend.Record{"id": "u1", "name": "Eve"}}, ""},
		{"deleted", backend.Event{Action: backend.ActionDelete, Record: backend.Record{"id": "u1", "name": "Eve"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newUserName(tt.ev))
		})
	}
}
