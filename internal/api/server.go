package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crossspread/internal/api/wsstream"
)

const shutdownTimeout = 30 * time.Second

// Server bundles the job-control HTTP server with the websocket hub it
// depends on, so the two shut down together instead of the hub being
// left running as an orphaned goroutine after the server stops.
type Server struct {
	http     *http.Server
	hub      *wsstream.Hub
	log      *zap.Logger
	certFile string
	keyFile  string
	useTLS   bool
}

// NewServer wraps an already-configured *http.Server and the Hub its
// router was built against.
func NewServer(httpServer *http.Server, hub *wsstream.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{http: httpServer, hub: hub, log: log}
}

// WithTLS switches Run to ListenAndServeTLS with the given cert/key
// pair instead of plaintext HTTP.
func (s *Server) WithTLS(certFile, keyFile string) *Server {
	s.useTLS = true
	s.certFile = certFile
	s.keyFile = keyFile
	return s
}

// Run starts the hub and the HTTP listener under one errgroup and
// blocks until ctx is cancelled or either one fails. On return the hub
// has drained its clients and the HTTP server has completed a graceful
// shutdown; a shutdown error, not the triggering cancellation, is
// returned to the caller.
func (s *Server) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.hub.Run(gctx)
	})

	group.Go(func() error {
		s.log.Info("starting server", zap.String("addr", s.http.Addr))
		var err error
		if s.useTLS {
			err = s.http.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			err = s.http.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
