package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions [id]",
	Short: "List the version history, or show one version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			version, err := store.Get(args[0])
			if err != nil {
				return err
			}
			color.New(color.Bold).Fprintf(cmd.OutOrStdout(), "Version %s\n", version.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", version.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt:  %s\n", version.Prompt)
			if version.Explanation != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", version.Explanation)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", version.DiagramSource)
			if len(version.Nodes) > 0 {
				color.New(color.Bold).Fprintln(cmd.OutOrStdout(), "\nNodes:")
				for _, node := range version.Nodes {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", node.ID, node.Label)
				}
			}
			return nil
		}

		versions, err := store.List()
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No versions yet.")
			return nil
		}
		for _, version := range versions {
			prompt := version.Prompt
			if len(prompt) > 60 {
				prompt = prompt[:57] + "..."
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
				version.ID, version.CreatedAt.Format("2006-01-02 15:04:05"), prompt)
		}
		return nil
	},
}

func init() {
	AddCommand(versionsCmd)
}
