package quic

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/hoops/internal/core/protocol"
)

// maxFrameSize bounds a single encoded frame.
const maxFrameSize = 64 * 1024

var _ protocol.Conn = (*Conn)(nil)

// Conn is a frame connection over one bidirectional QUIC stream.
type Conn struct {
	conn         *quic.Conn
	stream       *quic.Stream
	reader       *bufio.Reader
	writeTimeout time.Duration
	closed       atomic.Bool
	closeOnce    sync.Once
	writeMu      sync.Mutex
}

// Dial connects to addr and opens the frame stream.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, writeTimeout time.Duration) (*Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, defaultConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c := &Conn{conn: conn, writeTimeout: writeTimeout}
	c.attach(stream)
	return c, nil
}

// Handshake accepts the frame stream the peer opened. Accepted connections
// must complete it before reading or writing frames.
func (c *Conn) Handshake(ctx context.Context) error {
	if c.stream != nil {
		return nil
	}
	stream, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return errors.Join(protocol.ErrHandshake, err)
	}
	c.attach(stream)
	return nil
}

func (c *Conn) attach(stream *quic.Stream) {
	c.stream = stream
	c.reader = bufio.NewReaderSize(stream, 4096)
}

func (c *Conn) Transport() string  { return Transport }
func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

func (c *Conn) ReadFrame(ctx context.Context) (protocol.Frame, error) {
	if c.closed.Load() {
		return protocol.Frame{}, protocol.ErrConnectionClosed
	}
	if c.stream == nil {
		return protocol.Frame{}, protocol.ErrHandshake
	}

	deadline, _ := ctx.Deadline()
	_ = c.stream.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = c.stream.SetReadDeadline(time.Now())
	})
	defer stop()

	line, err := c.readLine()
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Frame{}, ctx.Err()
		}
		if c.closed.Load() || errors.Is(err, io.EOF) || isApplicationClose(err) {
			return protocol.Frame{}, protocol.ErrConnectionClosed
		}
		return protocol.Frame{}, fmt.Errorf("read frame: %w", err)
	}

	var f protocol.Frame
	if err = json.Unmarshal(line, &f); err != nil {
		return protocol.Frame{}, errors.Join(protocol.ErrInvalidFrame, err)
	}
	return f, nil
}

func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxFrameSize {
			return nil, fmt.Errorf("%w: frame exceeds %d bytes", protocol.ErrInvalidFrame, maxFrameSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

func isApplicationClose(err error) bool {
	var appErr *quic.ApplicationError
	return errors.As(err, &appErr)
}

func (c *Conn) WriteFrame(ctx context.Context, f protocol.Frame) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}
	if c.stream == nil {
		return protocol.ErrHandshake
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.stream.SetWriteDeadline(deadline)

	if _, err = c.stream.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.stream != nil {
			c.writeMu.Lock()
			_ = c.stream.Close()
			c.writeMu.Unlock()
		}
		_ = c.conn.CloseWithError(0, "closed")
	})
	return nil
}
