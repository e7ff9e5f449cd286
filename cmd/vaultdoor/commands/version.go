package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewVersionCommand(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vaultdoor %s (commit: %s, built: %s)\n", build.Version, build.Commit, build.Date)
		},
	}
}
