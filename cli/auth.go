package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the "login" subcommand.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	cmd.Flags().StringP("username", "u", "", "Account email")
	cmd.Flags().StringP("password", "p", "", "Account password")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// NewSignupCmd creates the "signup" subcommand.
func NewSignupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runSignup,
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().StringP("password", "p", "", "Account password")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewLogoutCmd creates the "logout" subcommand.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				app.Session.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	if fromStdin {
		if password != "" {
			return "", exitError(exitFailure, "--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", exitError(exitFailure, "a password is required (--password or --password-stdin)")
	}
	return password, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *App) error {
		if !app.Session.Login(ctx, username, password) {
			return exitError(exitAuth, "login failed: %s", app.Session.LoginError())
		}
		printSignedIn(cmd, app)
		return nil
	})
}

func runSignup(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *App) error {
		if !app.Session.Signup(ctx, email, password) {
			return exitError(exitAuth, "signup failed: %s", app.Session.SignupError())
		}
		printSignedIn(cmd, app)
		return nil
	})
}

func printSignedIn(cmd *cobra.Command, app *App) {
	out := cmd.OutOrStdout()
	if user := app.Session.CurrentUser(); user != nil {
		fmt.Fprintf(out, "Logged in as %s (%s)\n", user.Email, user.RoleID)
	} else {
		fmt.Fprintln(out, "Logged in (profile unavailable)")
	}
	fmt.Fprintf(out, "Landing page: %s\n", app.Navigator.Current())
}
