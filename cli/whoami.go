package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewWhoamiCmd creates the "whoami" subcommand.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, refreshed from the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if !app.Session.IsLoggedIn() {
					return exitError(exitNotLoggedIn, "not logged in")
				}
				app.Session.FetchCurrentUser(ctx)
				if !app.Session.IsLoggedIn() {
					return exitError(exitNotLoggedIn, "session expired, run cmpctl login")
				}
				user := app.Session.CurrentUser()
				if user == nil {
					return exitError(exitAPI, "profile unavailable")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.Email, user.RoleID, user.ID)
				return nil
			})
		},
	}
}

// statusReport is what "status" prints.
type statusReport struct {
	LoggedIn   bool       `json:"logged_in" yaml:"logged_in"`
	Email      string     `json:"email,omitempty" yaml:"email,omitempty"`
	Role       string     `json:"role,omitempty" yaml:"role,omitempty"`
	Subject    string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired    bool       `json:"expired,omitempty" yaml:"expired,omitempty"`
	HasRefresh bool       `json:"has_refresh_token" yaml:"has_refresh_token"`
	Storage    string     `json:"storage" yaml:"storage"`
	APIBaseURL string     `json:"api_base_url" yaml:"api_base_url"`
}

// NewStatusCmd creates the "status" subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session and access token expiry",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format: text | yaml | json")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("output")

	return withApp(cmd, func(ctx context.Context, app *App) error {
		report := buildStatus(app, time.Now())
		out := cmd.OutOrStdout()

		switch format {
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encoding status: %w", err)
			}
			return enc.Close()
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "text":
			if !report.LoggedIn {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			fmt.Fprintf(out, "Logged in as %s (%s)\n", orUnknown(report.Email), orUnknown(report.Role))
			if report.ExpiresAt != nil {
				state := "valid until"
				if report.Expired {
					state = "expired at"
				}
				fmt.Fprintf(out, "Access token %s %s\n", state, report.ExpiresAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "Storage: %s\n", report.Storage)
			return nil
		default:
			return exitError(exitFailure, "unknown output format %q", format)
		}
	})
}

func buildStatus(app *App, now time.Time) statusReport {
	state := app.Session.Snapshot()
	report := statusReport{
		LoggedIn:   state.IsAuthenticated,
		HasRefresh: state.RefreshToken != "",
		Storage:    string(app.Config.GetStorageKind()),
		APIBaseURL: app.Config.GetAPIBaseURL(),
	}
	if state.CurrentUser != nil {
		report.Email = state.CurrentUser.Email
		report.Role = string(state.CurrentUser.RoleID)
	}
	if claims, err := app.Session.AccessClaims(); err == nil {
		report.Subject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt.UTC()
			report.ExpiresAt = &exp
			report.Expired = claims.Expired(now)
		}
	}
	return report
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
