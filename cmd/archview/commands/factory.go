package commands

import (
	"fmt"
	"os"

	"github.com/archview/archview/mermaid"
	"github.com/archview/archview/services"
	"github.com/archview/archview/services/llm"
)

func resolvedDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return os.Getenv("ARCHVIEW_DATA_DIR")
}

func resolvedDirection() string {
	if direction != "" {
		return direction
	}
	if d := os.Getenv("ARCHVIEW_DIRECTION"); d != "" {
		return d
	}
	return mermaid.DefaultDirection
}

func resolvedThemeFile() string {
	if themeFile != "" {
		return themeFile
	}
	return os.Getenv("ARCHVIEW_THEME_FILE")
}

// newNormalizer builds the normalizer from flags and environment, loading
// theme overrides first so --theme can name a theme from the file.
func newNormalizer() (*mermaid.Normalizer, error) {
	if path := resolvedThemeFile(); path != "" {
		if err := mermaid.LoadThemeFile(path); err != nil {
			return nil, err
		}
	}
	return mermaid.NewNormalizer(resolvedDirection(), mermaid.ThemeByName(themeName)), nil
}

func newStore() (*services.VersionStore, error) {
	return services.NewVersionStore(resolvedDataDir())
}

// newGenerationService assembles the full pipeline with a real OpenAI client.
func newGenerationService() (*services.GenerationService, *services.VersionStore, error) {
	normalizer, err := newNormalizer()
	if err != nil {
		return nil, nil, err
	}
	store, err := newStore()
	if err != nil {
		return nil, nil, err
	}
	client, err := llm.NewOpenAIClient()
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize LLM client: %w", err)
	}
	gen := services.NewGenerationService(client, store, normalizer, services.NewGitHubClient())
	return gen, store, nil
}
