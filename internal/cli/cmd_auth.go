package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aitteam/whm/internal/cli/formatter"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/aitteam/whm/internal/service"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("尚未登入，請先執行 whm login")

func requireLogin(app *App) error {
	if !app.Session.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password, provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with --oauth google",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if provider != "" {
				if app.IsInteractive != nil && app.IsInteractive() {
					spin := formatter.NewSpinner(cmd.ErrOrStderr(), "等待 Google 授權...")
					spin.Start()
					defer spin.Stop()
				}
				sess, err := app.Auth.LoginWithOAuth(ctx, provider)
				if err != nil {
					return errclass.Classify(errclass.OpOAuth, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已登入：%s\n", formatter.Bold(sess.UserName))
				return nil
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			sess, err := app.Auth.Login(ctx, email, password)
			if err != nil {
				return errclass.Classify(errclass.OpLogin, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已登入：%s\n", formatter.Bold(sess.UserName))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&provider, "oauth", "", "OAuth2 provider (google)")
	cmd.MarkFlagsMutuallyExclusive("oauth", "email")

	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var in service.SignupInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.PasswordConfirm == "" {
				in.PasswordConfirm = in.Password
			}
			if _, err := app.Auth.Signup(context.Background(), in); err != nil {
				return errclass.Classify(errclass.OpSignup, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgSignedUp)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (8 to 72 characters)")
	cmd.Flags().StringVar(&in.PasswordConfirm, "password-confirm", "", "Password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgLoggedOut)
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(app); err != nil {
				return err
			}
			u, err := app.Auth.CurrentUser(context.Background())
			if err != nil {
				return errclass.Classify(errclass.OpFetch, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatUserInfo(u, app.Session.LoginType()))
			return nil
		},
	}
}
