package cli

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the "version" subcommand.
func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the banner and version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			displayAppname(cmd, "cmpctl")
			fmt.Fprintf(cmd.OutOrStdout(), "cmpctl version %s\n", version)
		},
	}
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	figure.Write(cmd.OutOrStdout(), myFigure)
	fmt.Fprintln(cmd.OutOrStdout())
}
