package server

import (
	"context"
	"net/http"
	"time"

	"github.com/yadava5/taskflow/internal/logger"
)

// Server wraps the HTTP listener so main can start it and shut it down
// without reaching into net/http details.
type Server struct {
	http *http.Server
	log  *logger.Logger
}

func New(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With("component", "server"),
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	return s.http.Shutdown(ctx)
}
