package cli

import (
	"context"
	"sync"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

const feedBuffer = 32

// MsgUserCreated prefixes the notice shown when someone signs up.
const MsgUserCreated = "新使用者已新增："

// userFeed is a live subscription to the users collection. Events are
// queued by the backend's goroutine and drained one at a time by next.
type userFeed struct {
	client backend.Client
	cancel context.CancelFunc
	events chan backend.Event
	done   chan struct{}
	once   sync.Once
}

func startUserFeed(client backend.Client) (*userFeed, error) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &userFeed{
		client: client,
		cancel: cancel,
		events: make(chan backend.Event, feedBuffer),
		done:   make(chan struct{}),
	}
	if err := client.Collection(backend.UsersCollection).Subscribe(ctx, "*", f.deliver); err != nil {
		cancel()
		return nil, err
	}
	return f, nil
}

// deliver drops events when the queue is full rather than stall the backend.
func (f *userFeed) deliver(ev backend.Event) {
	select {
	case f.events <- ev:
	case <-f.done:
	default:
	}
}

// next waits for one event. It yields nothing once the feed is stopped.
func (f *userFeed) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-f.events:
			return userEventMsg{feed: f, event: ev}
		case <-f.done:
			return nil
		}
	}
}

func (f *userFeed) stop() {
	f.once.Do(func() {
		close(f.done)
		_ = f.client.Collection(backend.UsersCollection).Unsubscribe("*")
		f.cancel()
	})
}

// subscribeUsers starts the feed off the UI goroutine.
func subscribeUsers(client backend.Client) tea.Cmd {
	return func() tea.Msg {
		f, err := startUserFeed(client)
		if err != nil {
			return feedFailedMsg{err: err}
		}
		return feedStartedMsg{feed: f}
	}
}

// newUserName returns the display name of a created user, or "" for any
// other event.
func newUserName(ev backend.Event) string {
	if ev.Action != backend.ActionCreate {
		return ""
	}
	var u domain.User
	if err := backend.Decode(ev.Record, &u); err != nil {
		return ""
	}
	return domain.Coalesce(u.DisplayName(), u.ID)
}
