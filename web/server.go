package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/archview/archview/mermaid"
	"github.com/archview/archview/services"
)

// Server hosts the JSON API. Start blocks until the context is cancelled or
// the listener fails.
type Server struct {
	Address    string
	Gen        *services.GenerationService
	Store      *services.VersionStore
	Normalizer *mermaid.Normalizer
}

func (s *Server) Start(ctx context.Context) error {
	api := NewApi(s.Gen, s.Store, s.Normalizer)

	httpServer := &http.Server{
		Addr:              s.Address,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting http endpoint", "addr", s.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down http server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		slog.Info("Http server stopped.")
		return nil
	}
}
