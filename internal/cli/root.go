package cli

import (
	"log/slog"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/config"
	"github.com/aitteam/whm/internal/service"
	"github.com/aitteam/whm/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Auth     service.AuthService
	Session  *session.Store
	Projects service.ProjectService
	Tasks    service.TaskService
	Works    service.WorkService
	Users    service.UserService

	// Client is the signed-in backend client used for realtime events.
	Client backend.Client
	// Factory builds per-request clients for the proxy API.
	Factory backend.Factory
	// Local is set when the embedded SQLite backend is in use.
	Local *local.Backend

	Config config.Config
	Logger *slog.Logger

	// IsInteractive reports whether stdin is a terminal. The bare "whm"
	// command starts the TUI only when it returns true.
	IsInteractive func() bool
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		a.Logger = slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// NewRootCmd creates the top-level "whm" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	app.logger()
	if app.Auth != nil && app.Session != nil && app.Session.Authenticated() {
		app.Auth.Restore()
	}

	root := &cobra.Command{
		Use:           "whm",
		Short:         "Work-hour management dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive == nil || !app.IsInteractive() {
				return cmd.Help()
			}
			return runTUI(app)
		},
	}

	root.AddCommand(
		newLoginCmd(app),
		newSignupCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newProjectCmd(app),
		newTaskCmd(app),
		newWorkCmd(app),
		newUserCmd(app),
		newWatchCmd(app),
		newServeCmd(app),
		newBackendCmd(app),
	)

	return root
}

func runTUI(app *App) error {
	_, err := tea.NewProgram(newAppModel(app), tea.WithAltScreen()).Run()
	return err
}
