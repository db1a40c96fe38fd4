package cli

import (
	"github.com/aitteam/whm/internal/cli/loading"
	"github.com/aitteam/whm/internal/cli/message"
	"github.com/aitteam/whm/internal/controller"
	tea "github.com/charmbracelet/bubbletea"
)

// SharedState holds context shared across all views via pointer.
type SharedState struct {
	App *App

	// Messages is the single transient message line.
	Messages *message.Surface
	// Loading is the spinner shown while backend requests are in flight.
	Loading *loading.Overlay

	// Terminal dimensions
	Width  int
	Height int
}

func newSharedState(app *App) *SharedState {
	app.logger()
	overlay := loading.New()
	return &SharedState{
		App:      app,
		Messages: message.New(message.WithDuration(app.Config.MessageDuration)),
		Loading:  &overlay,
	}
}

// ContentHeight returns the available height for view content,
// accounting for header (2 lines: title + separator), the message line,
// and status bar (2 lines: separator + hints).
func (s *SharedState) ContentHeight() int {
	h := s.Height - 5
	if h < 1 {
		return 1
	}
	return h
}

// notify shows a controller notice on the message line.
func (s *SharedState) notify(n controller.Notice) tea.Cmd {
	switch n.Kind {
	case controller.NoticeSuccess:
		return s.Messages.Success(n.Text)
	case controller.NoticeError:
		return s.Messages.Error(n.Text)
	}
	return nil
}

// perPage is the list page size of every screen.
func (s *SharedState) perPage() int {
	if n := s.App.Config.PageSize; n > 0 {
		return n
	}
	return controller.DefaultPerPage
}
