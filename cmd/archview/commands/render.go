package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Normalize raw model output into canonical diagram source",
	Long: `Reads raw model output from a file (or stdin when no file is given),
runs the repair pipeline, and writes the canonical diagram source to stdout.
Any surrounding prose goes to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}

		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}

		res := normalizer.Normalize(string(data))
		if res.Explanation != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Explanation)
		}
		if res.DiagramSource == "" {
			color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "nothing to render: no diagram content detected")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.DiagramSource)
		return nil
	},
}

func init() {
	AddCommand(renderCmd)
}
