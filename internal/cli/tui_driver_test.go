package cli

import (
	"testing"
	"time"

	"github.com/aitteam/whm/internal/cli/message"
	"github.com/aitteam/whm/internal/teatest"
)

// driverCmdTimeout covers in-memory SQLite round trips while still skipping
// spinner frames and message dismiss timers.
const driverCmdTimeout = 50 * time.Millisecond

// TestDriver wraps teatest.Driver with whm-specific inspection methods.
// It provides access to appModel internals (view stack, shared state)
// that the generic driver can't see.
type TestDriver struct {
	*teatest.Driver
}

// NewTestDriver creates a TestDriver from a test App.
// It constructs the appModel, sets terminal size, and drains Init()
// (which loads the first screen synchronously via in-memory SQLite).
func NewTestDriver(t *testing.T, app *App) *TestDriver {
	t.Helper()

	m := newAppModel(app)
	d := teatest.New(t, m, teatest.WithSize(120, 40), teatest.WithCmdTimeout(driverCmdTimeout))
	d.DrainInit()
	t.Cleanup(func() {
		if m, ok := d.Model.(appModel); ok {
			m.stopFeed()
		}
	})

	return &TestDriver{Driver: d}
}

// ── whm-specific inspection ──────────────────────────────────────────────────

func (d *TestDriver) appModel() appModel {
	return d.Model.(appModel)
}

// ActiveView returns the top view on the stack.
func (d *TestDriver) ActiveView() View {
	m := d.appModel()
	return m.activeView()
}

// ActiveViewID returns the ViewID of the top view on the stack.
func (d *TestDriver) ActiveViewID() ViewID {
	v := d.ActiveView()
	if v == nil {
		return ViewID(-1)
	}
	return v.ID()
}

// ViewStackLen returns the number of views on the stack.
func (d *TestDriver) ViewStackLen() int {
	return len(d.appModel().viewStack)
}

// State returns the shared state for inspection.
func (d *TestDriver) State() *SharedState {
	return d.appModel().state
}

// IsQuitting returns whether the app has signaled a quit.
func (d *TestDriver) IsQuitting() bool {
	return d.appModel().quitting || d.Quitting
}

// Message returns the message line, if one is shown.
func (d *TestDriver) Message() (message.Message, bool) {
	return d.State().Messages.Current()
}

// MessageText returns the text of the current message, or "".
func (d *TestDriver) MessageText() string {
	m, _ := d.Message()
	return m.Text
}
