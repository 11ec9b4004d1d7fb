// Package websocket carries protocol frames as JSON text messages over a
// gorilla WebSocket connection.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/hoops/internal/core/protocol"
)

const Transport = "websocket"

const bufferSize = 4096

var _ protocol.Conn = (*Conn)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  bufferSize,
	WriteBufferSize: bufferSize,
	CheckOrigin: func(r *http.Request) bool {
		// Scene hosts are native apps, not browsers.
		return true
	},
}

// Conn is a frame connection over WebSocket.
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       atomic.Bool
	closeOnce    sync.Once

	// Write mutex to ensure thread-safe writes
	writeMu sync.Mutex
}

func NewConn(conn *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{conn: conn, writeTimeout: writeTimeout}
}

// Upgrade upgrades an HTTP request to a frame connection.
func Upgrade(w http.ResponseWriter, r *http.Request, writeTimeout time.Duration) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	return NewConn(conn, writeTimeout), nil
}

// Dial connects to a ws:// or wss:// URL.
func Dial(ctx context.Context, url string, writeTimeout time.Duration) (*Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewConn(conn, writeTimeout), nil
}

func (c *Conn) Transport() string  { return Transport }
func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// ReadFrame blocks until a frame arrives. Cancelling ctx interrupts the read,
// after which the connection is no longer usable.
func (c *Conn) ReadFrame(ctx context.Context) (protocol.Frame, error) {
	if c.closed.Load() {
		return protocol.Frame{}, protocol.ErrConnectionClosed
	}

	deadline, _ := ctx.Deadline()
	_ = c.conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Frame{}, ctx.Err()
		}
		if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return protocol.Frame{}, protocol.ErrConnectionClosed
		}
		return protocol.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
		return protocol.Frame{}, fmt.Errorf("%w: message type %d", protocol.ErrInvalidFrame, messageType)
	}

	var f protocol.Frame
	if err = json.Unmarshal(data, &f); err != nil {
		return protocol.Frame{}, errors.Join(protocol.ErrInvalidFrame, err)
	}
	return f, nil
}

func (c *Conn) WriteFrame(ctx context.Context, f protocol.Frame) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(c.writeDeadline(ctx))
	if err = c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Conn) writeDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// Close sends a close message and releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
