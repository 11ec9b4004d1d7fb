package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/protocol"
	"github.com/zeusync/hoops/internal/core/protocol/quic"
	"github.com/zeusync/hoops/internal/core/protocol/websocket"
)

func (s *Server) websocketHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.reserve() {
			s.logger.Warn("Maximum sessions reached, rejecting connection",
				log.String("remote_addr", r.RemoteAddr))
			http.Error(w, ErrMaxSessionsReached.Error(), http.StatusServiceUnavailable)
			return
		}
		defer s.release()

		conn, err := websocket.Upgrade(w, r, s.config.Server.WriteTimeout)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed", log.Error(err))
			return
		}
		s.serveConn(ctx, conn)
	}
}

func (s *Server) acceptQUIC(ctx context.Context, ln *quic.Listener) error {
	s.logger.Debug("QUIC acceptor started")
	defer s.logger.Debug("QUIC acceptor stopped")

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, protocol.ErrConnectionClosed) {
				return nil
			}
			s.logger.Error("Failed to accept QUIC connection", log.Error(err))
			continue
		}

		if !s.reserve() {
			s.logger.Warn("Maximum sessions reached, rejecting connection",
				log.String("remote_addr", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}
		go func() {
			defer s.release()
			s.serveConn(ctx, conn)
		}()
	}
}
