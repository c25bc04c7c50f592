package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags shared by subcommands.
var (
	dataDir   string
	direction string
	themeName string
	themeFile string
)

var rootCmd = &cobra.Command{
	Use:   "archview",
	Short: "archview turns natural-language descriptions into architecture diagrams",
	Long: `archview asks a generative model to describe a system as a Mermaid
flowchart plus per-component metadata, deterministically repairs the
generated diagram source, and keeps an immutable history of every version.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the version history (default: ARCHVIEW_DATA_DIR env var or ./data/versions)")
	rootCmd.PersistentFlags().StringVar(&direction, "direction", "", "Layout direction policy: TD, TB, LR, RL or BT (default: ARCHVIEW_DIRECTION env var or TD)")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "default", "Theme for emitted classDef styles")
	rootCmd.PersistentFlags().StringVar(&themeFile, "theme-file", "", "YAML file with theme overrides (default: ARCHVIEW_THEME_FILE env var)")
}

// AddCommand allows adding subcommands from other files.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
