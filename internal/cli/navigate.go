package cli

import (
	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// Navigation messages used by views to request view transitions.
// The appModel handles these in its Update method.

// pushViewMsg pushes a new view onto the navigation stack.
type pushViewMsg struct {
	view View
}

// popViewMsg pops the current view off the navigation stack,
// returning to the previous view.
type popViewMsg struct{}

// replaceViewMsg replaces the current top view with a new one.
type replaceViewMsg struct {
	view View
}

// wizardCompleteMsg is sent when a wizard form completes or is cancelled.
// The appModel handles it atomically: pop the wizard view, then run nextCmd.
type wizardCompleteMsg struct {
	nextCmd tea.Cmd
}

// loggedInMsg switches the shell to the signed-in layout.
type loggedInMsg struct {
	session domain.Session
}

// logoutMsg asks the shell to end the session.
type logoutMsg struct{}

// feedStartedMsg carries a live users subscription.
type feedStartedMsg struct {
	feed *userFeed
}

type feedFailedMsg struct {
	err error
}

// userEventMsg is one realtime change of the users collection.
type userEventMsg struct {
	feed  *userFeed
	event backend.Event
}

// broadcastMsg is delivered to every view on the stack, not only the top one,
// so a view covered by a form still sees the results of its own requests.
type broadcastMsg interface {
	broadcast()
}

// pushView returns a tea.Cmd that pushes a view onto the stack.
func pushView(v View) tea.Cmd {
	return func() tea.Msg { return pushViewMsg{view: v} }
}

// popView returns a tea.Cmd that pops the current view.
func popView() tea.Cmd {
	return func() tea.Msg { return popViewMsg{} }
}

// replaceView returns a tea.Cmd that replaces the top view.
func replaceView(v View) tea.Cmd {
	return func() tea.Msg { return replaceViewMsg{view: v} }
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
