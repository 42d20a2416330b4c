// Package http provides the HTTP server, router and error responder of the
// transport layer.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/config"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// defaultShutdownTimeout bounds Shutdown when neither the context nor the
// configuration sets a deadline.
const defaultShutdownTimeout = 30 * time.Second

// errAlreadyStarted is returned by a second Start call.
var errAlreadyStarted = errors.New("server already started")

// server implements transportcore.Server on net/http.Server.
type server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger

	mu       sync.RWMutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates an HTTP server for router with the configured timeouts.
// ReadHeaderTimeout follows ReadTimeout.
func NewServer(cfg *config.ServerConfig, router transportcore.Router, logger *zap.Logger) transportcore.Server {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if router == nil {
		panic("router cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          zap.NewStdLog(logger.Named("http")),
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		ready:           make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Shutdown. It
// returns nil after a graceful shutdown.
func (s *server) Start() error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	close(s.ready)
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests. The
// configured shutdown timeout applies when ctx has no deadline.
func (s *server) Shutdown(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown incomplete", zap.Error(err))
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound address once listening, the configured one before.
func (s *server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Ready is closed once the listener is bound.
func (s *server) Ready() <-chan struct{} {
	return s.ready
}
