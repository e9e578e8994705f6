package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/hydrun/internal/app"
)

// Server is the HTTP front end. It only owns the listener; job monitors
// run independently and are unaffected by server shutdown.
type Server struct {
	app  *app.App
	addr string
	http *http.Server
}

func New(application *app.App) *Server {
	s := &Server{
		app:  application,
		addr: fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port),
	}

	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.withConditionalMiddleware(s.setupRoutes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown or a listener error
func (s *Server) Start() error {
	s.app.Logger.Info().Str("address", s.addr).Msg("HTTP server starting")

	err := s.http.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Draining HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
