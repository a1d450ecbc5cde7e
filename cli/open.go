package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewOpenCmd creates the "open" subcommand.
func NewOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Resolve a console path through the navigation guard",
		Long: "open shows where the console would take you for a path such as /users or\n" +
			"/project/42, following the same access rules the web console applies.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				res, err := app.Navigator.Navigate(ctx, args[0])
				if err != nil {
					return exitError(exitFailure, "%v", err)
				}

				out := cmd.OutOrStdout()
				for _, d := range res.Redirects {
					fmt.Fprintf(out, "%s -> %s\n", d.Outcome, d.Target)
				}
				name := "(unlisted)"
				if res.Route != nil {
					name = res.Route.Name
				}
				fmt.Fprintf(out, "%s %s\n", res.Final, name)
				return nil
			})
		},
	}
}
