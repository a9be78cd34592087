package server

import (
	"context"
	"net/http"
	"time"
)

type Config struct {
	ListenAddr string
}

type Server struct {
	cfg  Config
	http *http.Server
}

func New(cfg Config, app *App) *Server {
	return &Server{cfg: cfg, http: &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
