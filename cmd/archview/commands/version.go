package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X ...commands.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the archview version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "archview %s\n", Version)
	},
}

func init() {
	AddCommand(versionCmd)
}
