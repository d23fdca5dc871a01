package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev" // set at build time with -ldflags "-X github.com/nfrund/gymhub/cmd/gymhub/cmd.version=..."

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of gymhub",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gymhub %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
