// Package server implements the HTTP task supervised by the service
// controller.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"workservice/internal/config"
	"workservice/internal/logger"
)

var (
	// ErrNotPrepared is returned by Run when Prepare has not bound a listener.
	ErrNotPrepared = errors.New("server not prepared")
	// ErrAlreadyRun is returned by Run after the first call.
	ErrAlreadyRun = errors.New("server already run")
)

// BindError reports a failure to bind the listen address.
type BindError struct {
	Addr  string
	Owner string // process holding the port, empty if unknown
	Err   error
}

func (e *BindError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("bind %s (in use by %s): %v", e.Addr, e.Owner, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Option configures a Server.
type Option func(*Server)

// WithListener serves on ln instead of binding cfg's address.
func WithListener(ln net.Listener) Option {
	return func(s *Server) { s.preset = ln }
}

// WithHandler replaces the default greeting handler.
func WithHandler(h http.Handler) Option {
	return func(s *Server) { s.handler = h }
}

// Server is a single-use HTTP server. Prepare binds, Run serves.
type Server struct {
	cfg     config.ServerConfig
	preset  net.Listener
	handler http.Handler

	mu      sync.Mutex
	ln      net.Listener
	running bool
	release func() bool
}

// New creates a server for cfg.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = newGreetingHandler(cfg.Greeting)
	}
	return s
}

// Prepare binds the listener. If ctx ends before Run is called, the listener
// is closed.
func (s *Server) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logger.WithComponent("server")

	if s.ln != nil || s.running {
		return errors.New("server already prepared")
	}

	ln := s.preset
	if ln == nil {
		addr := s.cfg.Address()
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return &BindError{Addr: addr, Owner: lookupPortOwner(ctx, s.cfg.Port), Err: err}
		}
		ln = l
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.ln = ln
	s.release = context.AfterFunc(ctx, s.closeUnused)

	log.Info().
		Str("addr", ln.Addr().String()).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("Listener bound")
	return nil
}

// closeUnused releases a listener that was never served.
func (s *Server) closeUnused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.ln == nil {
		return
	}
	_ = s.ln.Close()
	s.ln = nil
	log := logger.WithComponent("server")
	log.Debug().Msg("Released unused listener")
}

// Addr returns the bound address, or nil before Prepare.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run serves until ctx is cancelled (returning nil) or serving fails.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	if s.ln == nil {
		s.mu.Unlock()
		return ErrNotPrepared
	}
	s.running = true
	if s.release != nil {
		s.release()
	}
	ln := s.ln
	s.mu.Unlock()

	log := logger.WithComponent("server")
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	serveDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(serveDone)
		log.Info().Str("addr", ln.Addr().String()).Msg("Serving HTTP")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", ln.Addr(), err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-serveDone:
			return nil
		}
		s.shutdown(srv)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) shutdown(srv *http.Server) {
	log := logger.WithComponent("server")

	if s.cfg.ShutdownTimeout <= 0 {
		if err := srv.Close(); err != nil {
			log.Debug().Err(err).Msg("Close returned error")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Dur("timeout", s.cfg.ShutdownTimeout).Msg("Graceful shutdown incomplete, closing connections")
		_ = srv.Close()
	}
}
