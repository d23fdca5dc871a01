package cmd

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/memstore"
)

// fs is swapped for an in-memory filesystem in tests.
var fs = afero.NewOsFs()

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Work with affiliation directory files",
}

var directoryCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a directory file and summarize it",
	Long: `Validate a DIRECTORY_FILE as used by STORE_DRIVER=memory and print how
many trainers and members each gym has.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		affs, err := memstore.ReadDirectoryFile(fs, args[0])
		if err != nil {
			return err
		}

		byGym := lo.GroupBy(affs, func(a domain.Affiliation) string { return a.GymID })
		gyms := lo.Keys(byGym)
		slices.Sort(gyms)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d affiliations in %d gyms\n", args[0], len(affs), len(gyms))
		for _, gym := range gyms {
			counts := lo.CountValuesBy(byGym[gym], func(a domain.Affiliation) domain.Role { return a.Role })
			fmt.Fprintf(out, "  %s: %d trainers, %d members\n", gym, counts[domain.RoleTrainer], counts[domain.RoleMember])
		}
		return nil
	},
}

func init() {
	directoryCmd.AddCommand(directoryCheckCmd)
	rootCmd.AddCommand(directoryCmd)
}
