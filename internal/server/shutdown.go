package server

import (
	"context"
	"log/slog"
)

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.E.Shutdown(ctx)
}
