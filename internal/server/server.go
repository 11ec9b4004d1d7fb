// Package server hosts shot sessions for remote scene hosts over WebSocket
// and QUIC. Each connection gets its own controller whose requests are
// written back to the host as frames.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/hoops/internal/config"
	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/protocol/quic"
)

// Stats is a snapshot of server counters.
type Stats struct {
	ActiveSessions   int64
	TotalSessions    uint64
	RejectedSessions uint64
	Shots            uint64
	Bus              bus.EventBusMetrics
}

type Server struct {
	config config.Config
	bus    bus.EventBus
	root   log.Log
	logger log.Log

	// lifecycle, guarded by mu
	mu         sync.Mutex
	running    bool
	closed     bool
	cancel     context.CancelFunc
	group      *errgroup.Group
	httpServer *http.Server
	wsListener net.Listener
	quicLn     *quic.Listener

	// sessMu orders reserve against draining so no Add races sessions.Wait.
	sessMu   sync.Mutex
	draining bool
	sessions sync.WaitGroup
	active   atomic.Int64
	total    atomic.Uint64
	rejected atomic.Uint64
	shots    atomic.Uint64
}

// New creates a server publishing session requests on b.
func New(cfg config.Config, b bus.EventBus, logger log.Log) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Provide()
	}
	if b == nil {
		b = bus.New()
	}

	s := &Server{
		config: cfg,
		bus:    b,
		root:   logger,
		logger: logger.With(log.String("component", "server")),
	}
	b.AddObserver(newBusObserver(logger))

	s.logger.Info("Server created",
		log.String("websocket_addr", cfg.Server.WebSocketAddr),
		log.String("quic_addr", cfg.Server.QUICAddr),
		log.Int("max_sessions", cfg.Server.MaxSessions))

	return s, nil
}

// Start binds the configured listeners and serves them in the background
// until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.running {
		return ErrServerAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	if addr := s.config.Server.WebSocketAddr; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			cancel()
			return fmt.Errorf("%w: websocket %s: %w", ErrListenerFailed, addr, err)
		}
		mux := http.NewServeMux()
		mux.HandleFunc(s.config.Server.WebSocketPath, s.websocketHandler(gctx))
		s.wsListener = ln
		s.httpServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: s.config.Server.HandshakeTimeout,
		}
		srv := s.httpServer
		group.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		s.logger.Info("WebSocket listener started", log.String("addr", ln.Addr().String()))
	}

	if addr := s.config.Server.QUICAddr; addr != "" {
		tlsConfig, err := s.tlsConfig()
		if err != nil {
			s.closeListeners()
			cancel()
			return fmt.Errorf("%w: quic tls: %w", ErrListenerFailed, err)
		}
		ln, err := quic.Listen(addr, tlsConfig, s.config.Server.WriteTimeout)
		if err != nil {
			s.closeListeners()
			cancel()
			return fmt.Errorf("%w: quic %s: %w", ErrListenerFailed, addr, err)
		}
		s.quicLn = ln
		group.Go(func() error { return s.acceptQUIC(gctx, ln) })
		s.logger.Info("QUIC listener started", log.String("addr", ln.Addr().String()))
	}

	group.Go(func() error {
		<-gctx.Done()
		s.mu.Lock()
		s.closeListeners()
		s.mu.Unlock()
		return nil
	})

	s.cancel = cancel
	s.group = group
	s.running = true
	s.logger.Info("Server started")
	return nil
}

// Stop closes the listeners, ends every session and waits for them to finish
// or for ctx to expire. A stopped server cannot be restarted.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrServerNotRunning
	}
	s.running = false
	s.closed = true
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	s.logger.Info("Stopping server")
	s.sessMu.Lock()
	s.draining = true
	s.sessMu.Unlock()
	cancel()

	done := make(chan error, 1)
	go func() {
		err := group.Wait()
		s.sessions.Wait()
		done <- err
	}()

	select {
	case err := <-done:
		s.logger.Info("Server stopped", log.Uint64("total_sessions", s.total.Load()))
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) Stats() Stats {
	return Stats{
		ActiveSessions:   s.active.Load(),
		TotalSessions:    s.total.Load(),
		RejectedSessions: s.rejected.Load(),
		Shots:            s.shots.Load(),
		Bus:              s.bus.GetMetrics(),
	}
}

// WebSocketAddr returns the bound WebSocket address, or "" when disabled or not started.
func (s *Server) WebSocketAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wsListener == nil {
		return ""
	}
	return s.wsListener.Addr().String()
}

// QUICAddr returns the bound QUIC address, or "" when disabled or not started.
func (s *Server) QUICAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quicLn == nil {
		return ""
	}
	return s.quicLn.Addr().String()
}

func (s *Server) tlsConfig() (*tls.Config, error) {
	if s.config.Server.CertFile != "" {
		return quic.LoadTLS(s.config.Server.CertFile, s.config.Server.KeyFile)
	}
	s.logger.Warn("No certificate configured, using a self-signed development certificate")
	return quic.GenerateSelfSignedTLS()
}

// closeListeners must be called with mu held.
func (s *Server) closeListeners() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	} else if s.wsListener != nil {
		_ = s.wsListener.Close()
	}
	if s.quicLn != nil {
		_ = s.quicLn.Close()
	}
}

// reserve claims a session slot. It fails once Stop has begun.
func (s *Server) reserve() bool {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if s.draining {
		s.rejected.Add(1)
		return false
	}
	if s.active.Add(1) > int64(s.config.Server.MaxSessions) {
		s.active.Add(-1)
		s.rejected.Add(1)
		return false
	}
	s.sessions.Add(1)
	return true
}

func (s *Server) release() {
	s.active.Add(-1)
	s.sessions.Done()
}
