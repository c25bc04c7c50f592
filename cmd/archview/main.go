package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/archview/archview/cmd/archview/commands"
)

func main() {
	// The .env file is optional for CLI usage; environment variables win.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env file")
	}

	if os.Getenv("ARCHVIEW_ENV") == "dev" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	commands.Execute()
}
