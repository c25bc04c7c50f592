package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/archview/archview/services"
)

var (
	generateRepoURL    string
	generateStructured bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a diagram version from a prompt",
	Long: `Sends the prompt to the model, repairs the returned diagram source,
and appends the result to the version history. The diagram source is
printed to stdout; status goes to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, _, err := newGenerationService()
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")
		version, err := gen.Generate(context.Background(), services.GenerateRequest{
			Prompt:     prompt,
			RepoURL:    generateRepoURL,
			Structured: generateStructured,
		})
		if errors.Is(err, services.ErrNothingToRender) {
			if version != nil && version.Explanation != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), version.Explanation)
			}
			color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "nothing to render: the model returned no diagram content")
			return nil
		}
		if err != nil {
			return err
		}

		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Created version %s\n", version.ID)
		if version.Explanation != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), version.Explanation)
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.DiagramSource)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateRepoURL, "repo", "", "GitHub repository (URL or owner/repo) to include as context")
	generateCmd.Flags().BoolVar(&generateStructured, "structured", false, "Request a structured JSON response from the model")
	AddCommand(generateCmd)
}
