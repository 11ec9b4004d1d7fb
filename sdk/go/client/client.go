// Package client is the Go SDK for scene hosts: it connects to a shot
// server, reports AR input and applies the returned scene requests to a
// local gateway.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
	"github.com/zeusync/hoops/internal/core/protocol"
	"github.com/zeusync/hoops/internal/core/protocol/quic"
	"github.com/zeusync/hoops/internal/core/protocol/websocket"
	"github.com/zeusync/hoops/internal/gateway"
)

type Transport string

const (
	TransportWebSocket Transport = websocket.Transport
	TransportQUIC      Transport = quic.Transport
)

// Config holds configuration for the client
type Config struct {
	Transport Transport
	// Addr is a ws:// URL for WebSocket or host:port for QUIC.
	Addr           string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// InsecureSkipVerify accepts the server's self-signed QUIC certificate.
	InsecureSkipVerify bool
	Logger             log.Log
}

func DefaultConfig() Config {
	return Config{
		Transport:      TransportWebSocket,
		Addr:           "ws://127.0.0.1:8080/ws",
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Client is one session with a shot server.
type Client struct {
	conn    protocol.Conn
	session string
	logger  log.Log
	closed  atomic.Bool
	serving atomic.Bool
}

// Dial connects and performs the hello handshake.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidConfig)
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Provide()
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	var (
		conn protocol.Conn
		err  error
	)
	switch config.Transport {
	case TransportWebSocket, "":
		conn, err = websocket.Dial(ctx, config.Addr, config.WriteTimeout)
	case TransportQUIC:
		conn, err = quic.Dial(ctx, config.Addr, quic.ClientTLS(config.InsecureSkipVerify), config.WriteTimeout)
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, config.Transport)
	}
	if err != nil {
		return nil, err
	}

	if err = conn.WriteFrame(ctx, protocol.Frame{Type: protocol.FrameHello}); err != nil {
		_ = conn.Close()
		return nil, errors.Join(protocol.ErrHandshake, err)
	}
	f, err := conn.ReadFrame(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Join(protocol.ErrHandshake, err)
	}
	if f.Type != protocol.FrameSession || f.Session == "" {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: expected %s, got %q", protocol.ErrHandshake, protocol.FrameSession, f.Type)
	}

	c := &Client{
		conn:    conn,
		session: f.Session,
		logger: logger.With(
			log.String("component", "client"),
			log.String("session", f.Session)),
	}
	c.logger.Info("Connected", log.String("transport", conn.Transport()), log.String("addr", config.Addr))
	return c, nil
}

// Session returns the id the server assigned.
func (c *Client) Session() string { return c.session }

func (c *Client) PlaneDetected(ctx context.Context, planeID string) error {
	return c.send(ctx, protocol.Frame{Type: protocol.FramePlaneDetected, PlaneID: planeID})
}

// Tap reports a tap with the hit-test result. The zero Pose reports an empty hit-test.
func (c *Client) Tap(ctx context.Context, hit physics.Pose) error {
	return c.send(ctx, protocol.PoseFrame(protocol.FrameTap, hit))
}

// ViewerPose updates the camera pose the next shot is aimed with.
func (c *Client) ViewerPose(ctx context.Context, pose physics.Pose) error {
	return c.send(ctx, protocol.PoseFrame(protocol.FrameViewerPose, pose))
}

// ViewerTransform sends the camera's column-major 4x4 transform as the
// viewer pose.
func (c *Client) ViewerTransform(ctx context.Context, m [16]float64) error {
	return c.send(ctx, protocol.TransformFrame(protocol.FrameViewerPose, m))
}

// LoseTracking tells the server no viewer pose is available.
func (c *Client) LoseTracking(ctx context.Context) error {
	return c.send(ctx, protocol.Frame{Type: protocol.FrameViewerPose})
}

func (c *Client) PressBegin(ctx context.Context) error {
	return c.send(ctx, protocol.Frame{Type: protocol.FramePressBegin})
}

func (c *Client) PressEnd(ctx context.Context) error {
	return c.send(ctx, protocol.Frame{Type: protocol.FramePressEnd})
}

func (c *Client) send(ctx context.Context, f protocol.Frame) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.conn.WriteFrame(ctx, f)
}

// Serve applies scene requests from the server to gw until ctx is done or
// the connection closes. Gateway errors are logged and do not stop serving.
func (c *Client) Serve(ctx context.Context, gw gateway.Gateway) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	defer c.serving.Store(false)

	for {
		f, err := c.conn.ReadFrame(ctx)
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrInvalidFrame):
				c.logger.Warn("Dropping malformed frame", log.Error(err))
				continue
			case ctx.Err() != nil, errors.Is(err, protocol.ErrConnectionClosed):
				return nil
			default:
				return err
			}
		}

		req, err := f.Request()
		if err != nil {
			c.logger.Warn("Ignoring frame", log.String("type", string(f.Type)), log.Error(err))
			continue
		}
		if err = gateway.Dispatch(gw, req); err != nil {
			c.logger.Warn("Scene rejected request", log.Stringer("request", req), log.Error(err))
		}
	}
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Info("Disconnected")
	return c.conn.Close()
}
