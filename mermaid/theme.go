package mermaid

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StyleClasses is the closed vocabulary of semantic node classes. Assignments
// naming anything else are dropped during repair. Order here fixes the order
// of emitted classDef lines.
var StyleClasses = []string{"client", "service", "database", "queue", "logic", "edge"}

var styleClassSet = func() map[string]bool {
	m := make(map[string]bool, len(StyleClasses))
	for _, c := range StyleClasses {
		m[c] = true
	}
	return m
}()

func isStyleClass(name string) bool { return styleClassSet[name] }

// Theme maps each style class to its classDef style string.
type Theme map[string]string

var themes = map[string]Theme{
	"default": {
		"client":   "fill:#dbeafe,stroke:#1d4ed8,color:#1e3a8a",
		"service":  "fill:#dcfce7,stroke:#15803d,color:#14532d",
		"database": "fill:#fef9c3,stroke:#a16207,color:#713f12",
		"queue":    "fill:#fae8ff,stroke:#a21caf,color:#701a75",
		"logic":    "fill:#ffedd5,stroke:#c2410c,color:#7c2d12",
		"edge":     "fill:#e2e8f0,stroke:#475569,color:#1e293b",
	},
	"dark": {
		"client":   "fill:#1e3a8a,stroke:#93c5fd,color:#dbeafe",
		"service":  "fill:#14532d,stroke:#86efac,color:#dcfce7",
		"database": "fill:#713f12,stroke:#fde047,color:#fef9c3",
		"queue":    "fill:#701a75,stroke:#f0abfc,color:#fae8ff",
		"logic":    "fill:#7c2d12,stroke:#fdba74,color:#ffedd5",
		"edge":     "fill:#1e293b,stroke:#94a3b8,color:#e2e8f0",
	},
}

// DefaultTheme returns the classDef table used when nothing is configured.
func DefaultTheme() Theme { return themes["default"] }

// ThemeByName looks up a built-in theme, falling back to the default.
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return DefaultTheme()
}

// LoadThemeFile reads theme overrides from a YAML file mapping theme names to
// class/style tables and merges them over the built-ins. Unknown classes in
// the file are rejected so the closed vocabulary stays closed.
func LoadThemeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read theme file '%s': %w", path, err)
	}
	var loaded map[string]map[string]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("could not parse theme file '%s': %w", path, err)
	}
	for name, table := range loaded {
		theme, ok := themes[name]
		if !ok {
			theme = Theme{}
			for k, v := range DefaultTheme() {
				theme[k] = v
			}
			themes[name] = theme
		}
		for class, style := range table {
			if !isStyleClass(class) {
				return fmt.Errorf("theme '%s' styles unknown class '%s'", name, class)
			}
			theme[class] = style
		}
	}
	return nil
}
