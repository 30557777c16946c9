package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-labs/ocrhook/internal/logger"
)

// shutdownGrace is how long in-flight notifications may finish after
// the server is asked to stop.
const shutdownGrace = 30 * time.Second

// Server hosts the dispatcher on a listen address.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a webhook server. The handler is mounted at every
// path; the repository posts to whatever URL the subscription named.
func NewServer(addr string, handler http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until the context is cancelled, then drains gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	logger.Info("Listening on %s", s.httpServer.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
