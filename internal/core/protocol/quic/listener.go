package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/hoops/internal/core/protocol"
)

// Listener accepts QUIC connections carrying frame streams.
type Listener struct {
	listener     *quic.Listener
	writeTimeout time.Duration
	closed       atomic.Bool
}

func Listen(addr string, tlsConfig *tls.Config, writeTimeout time.Duration) (*Listener, error) {
	l, err := quic.ListenAddr(addr, tlsConfig, defaultConfig())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Listener{listener: l, writeTimeout: writeTimeout}, nil
}

// Accept waits for the next connection. The frame stream is accepted later
// with Conn.Handshake so a slow peer cannot stall the accept loop.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	if l.closed.Load() {
		return nil, protocol.ErrConnectionClosed
	}
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		if l.closed.Load() || errors.Is(err, quic.ErrServerClosed) {
			return nil, protocol.ErrConnectionClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return &Conn{conn: conn, writeTimeout: l.writeTimeout}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.listener.Close()
}
