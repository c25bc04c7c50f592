package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archview/archview/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the archview JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, store, err := newGenerationService()
		if err != nil {
			return err
		}
		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = os.Getenv("ARCHVIEW_SERVE_ADDR")
		}
		if addr == "" {
			addr = ":8080"
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := &web.Server{
			Address:    addr,
			Gen:        gen,
			Store:      store,
			Normalizer: normalizer,
		}
		return server.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: ARCHVIEW_SERVE_ADDR env var or :8080)")
	AddCommand(serveCmd)
}
