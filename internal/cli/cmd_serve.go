package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/httpapi"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy API in front of the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Factory == nil {
				return errors.New("no backend configured")
			}
			if addr == "" {
				addr = app.Config.ServeAddr
			}
			api := httpapi.New(app.Factory,
				httpapi.WithLogger(app.logger()),
				httpapi.WithAllowedOrigins(app.Config.CORSOrigins),
			)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			app.logger().Info("proxy listening", "addr", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream realtime record events",
	}
	cmd.AddCommand(newWatchUsersCmd(app))
	return cmd
}

func newWatchUsersCmd(app *App) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print users as they are created, updated or deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(app); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			feed, err := startUserFeed(app.Client)
			if err != nil {
				return fmt.Errorf("subscribing to users: %w", err)
			}
			defer feed.stop()

			out := cmd.OutOrStdout()
			for seen := 0; count <= 0 || seen < count; seen++ {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-feed.events:
					var u domain.User
					if err := backend.Decode(ev.Record, &u); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Action, u.ID, u.DisplayName())
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0 waits forever)")

	return cmd
}

func newBackendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Manage the embedded SQLite backend",
	}
	cmd.AddCommand(newInitAdminCmd(app))
	return cmd
}

func newInitAdminCmd(app *App) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Create a verified administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Local == nil {
				return errors.New("init-admin needs the local backend (set WHM_MODE=local)")
			}
			rec, err := app.Local.CreateAdmin(context.Background(), email, password, name)
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", email, rec.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (8 to 72 characters)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
