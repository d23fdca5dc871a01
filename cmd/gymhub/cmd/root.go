package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gymhub",
	Short: "Gym-scoped realtime messaging service",
	Long: `gymhub runs the realtime channel that connects gyms, trainers and members.

Available commands:
  serve       Run the HTTP and websocket server
  topics      Explore the bus topics the service publishes and consumes
  directory   Validate an affiliation directory file
  version     Print the build version

Use "gymhub [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
