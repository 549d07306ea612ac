package cli

import (
	"github.com/aussiebroadwan/dhadmin/internal/app"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("dhadmin version %s\n", app.BuildVersion)
		},
	}
}
