package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hoops/internal/config"
	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
	"github.com/zeusync/hoops/internal/core/protocol"
	"github.com/zeusync/hoops/internal/core/protocol/quic"
	"github.com/zeusync/hoops/internal/core/protocol/websocket"
)

var (
	floorPose  = physics.Pose{Position: physics.V(0, -1, -2), Forward: physics.V(0, 0, -1)}
	viewerPose = physics.Pose{Forward: physics.V(0, 0, -1)}
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Server.WebSocketAddr = "127.0.0.1:0"
	cfg.Server.QUICAddr = "127.0.0.1:0"
	cfg.Server.HandshakeTimeout = time.Second
	cfg.Shot.TickInterval = time.Hour
	cfg.Indicator.Duration = time.Hour
	return cfg
}

func startServer(t *testing.T, cfg config.Config) (*Server, bus.EventBus) {
	t.Helper()
	b := bus.New()
	srv, err := New(cfg, b, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv, b
}

func dialWebSocket(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := websocket.Dial(ctx, "ws://"+srv.WebSocketAddr()+"/ws", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn protocol.Conn, f protocol.Frame) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.WriteFrame(ctx, f))
}

func receive(t *testing.T, conn protocol.Conn) protocol.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f, err := conn.ReadFrame(ctx)
	require.NoError(t, err)
	return f
}

func hello(t *testing.T, conn protocol.Conn) string {
	t.Helper()
	send(t, conn, protocol.Frame{Type: protocol.FrameHello})
	f := receive(t, conn)
	require.Equal(t, protocol.FrameSession, f.Type)
	require.NotEmpty(t, f.Session)
	return f.Session
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 0
	_, err := New(cfg, bus.New(), log.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestWebSocketShotCycle(t *testing.T) {
	srv, b := startServer(t, testConfig())
	conn := dialWebSocket(t, srv)
	session := hello(t, conn)

	send(t, conn, protocol.Frame{Type: protocol.FramePlaneDetected, PlaneID: "plane-1"})
	assert.Equal(t, protocol.FrameShowIndicator, receive(t, conn).Type)

	send(t, conn, protocol.PoseFrame(protocol.FrameTap, floorPose))
	f := receive(t, conn)
	require.Equal(t, protocol.FrameSpawnHoop, f.Type)
	require.NotNil(t, f.Pose)
	assert.Equal(t, floorPose, *f.Pose)

	send(t, conn, protocol.PoseFrame(protocol.FrameViewerPose, viewerPose))
	send(t, conn, protocol.Frame{Type: protocol.FramePressBegin})
	send(t, conn, protocol.Frame{Type: protocol.FramePressEnd})

	assert.Equal(t, protocol.FrameRemoveAllShotBalls, receive(t, conn).Type)

	spawn := receive(t, conn)
	require.Equal(t, protocol.FrameSpawnBall, spawn.Type)
	req, err := spawn.Request()
	require.NoError(t, err)
	assert.Equal(t, physics.V(0, 0, -1), req.Vector)

	impulse := receive(t, conn)
	require.Equal(t, protocol.FrameApplyImpulse, impulse.Type)
	req, err = impulse.Request()
	require.NoError(t, err)
	assert.Equal(t, spawn.BallID, req.BallID)
	assert.Equal(t, physics.V(0, 0, -1), req.Vector)

	require.Eventually(t, func() bool { return srv.Stats().Shots == 1 }, time.Second, 10*time.Millisecond)
	stats := srv.Stats()
	assert.Equal(t, uint64(1), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ActiveSessions)
	assert.NotZero(t, stats.Bus.Published)

	var topics []string
	for _, topic := range b.GetTopics() {
		topics = append(topics, topic.Name)
	}
	assert.Contains(t, topics, session)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.Stats().ActiveSessions == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(b.GetTopics()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestPressEndWithoutViewerPose(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	conn := dialWebSocket(t, srv)
	hello(t, conn)

	send(t, conn, protocol.PoseFrame(protocol.FrameTap, floorPose))
	assert.Equal(t, protocol.FrameSpawnHoop, receive(t, conn).Type)

	send(t, conn, protocol.Frame{Type: protocol.FramePressBegin})
	send(t, conn, protocol.Frame{Type: protocol.FramePressEnd})

	// Pose carried on press_end is used for the shot.
	send(t, conn, protocol.Frame{Type: protocol.FramePressBegin})
	send(t, conn, protocol.PoseFrame(protocol.FramePressEnd, viewerPose))

	assert.Equal(t, protocol.FrameRemoveAllShotBalls, receive(t, conn).Type)
	assert.Equal(t, protocol.FrameSpawnBall, receive(t, conn).Type)
	assert.Equal(t, protocol.FrameApplyImpulse, receive(t, conn).Type)

	require.Eventually(t, func() bool { return srv.Stats().Shots == 1 }, time.Second, 10*time.Millisecond)
}

func TestHandshakeRequiresHello(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	conn := dialWebSocket(t, srv)

	send(t, conn, protocol.Frame{Type: protocol.FramePressBegin})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := conn.ReadFrame(ctx)
	require.Error(t, err)
	assert.Zero(t, srv.Stats().TotalSessions)
}

func TestMaxSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxSessions = 1
	srv, _ := startServer(t, cfg)

	first := dialWebSocket(t, srv)
	hello(t, first)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := websocket.Dial(ctx, "ws://"+srv.WebSocketAddr()+"/ws", time.Second)
	require.Error(t, err)
	assert.Equal(t, uint64(1), srv.Stats().RejectedSessions)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return srv.Stats().ActiveSessions == 0 }, 2*time.Second, 10*time.Millisecond)

	second := dialWebSocket(t, srv)
	hello(t, second)
}

func TestQUICSession(t *testing.T) {
	srv, _ := startServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := quic.Dial(ctx, srv.QUICAddr(), quic.ClientTLS(true), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	hello(t, conn)
	send(t, conn, protocol.Frame{Type: protocol.FramePlaneDetected, PlaneID: "plane-1"})
	assert.Equal(t, protocol.FrameShowIndicator, receive(t, conn).Type)

	send(t, conn, protocol.PoseFrame(protocol.FrameTap, floorPose))
	f := receive(t, conn)
	require.Equal(t, protocol.FrameSpawnHoop, f.Type)
	assert.Equal(t, floorPose, *f.Pose)
}

func TestLifecycle(t *testing.T) {
	srv, err := New(testConfig(), nil, log.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)
	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	assert.NotEmpty(t, srv.WebSocketAddr())
	assert.NotEmpty(t, srv.QUICAddr())

	conn := dialWebSocket(t, srv)
	hello(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Zero(t, srv.Stats().ActiveSessions)
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerClosed)
}

func TestViewerPose(t *testing.T) {
	var v viewer
	_, ok := v.ViewerPose()
	assert.False(t, ok)

	v.set(&viewerPose)
	pose, ok := v.ViewerPose()
	assert.True(t, ok)
	assert.Equal(t, viewerPose, pose)

	v.set(&physics.Pose{})
	_, ok = v.ViewerPose()
	assert.False(t, ok)

	v.set(nil)
	_, ok = v.ViewerPose()
	assert.False(t, ok)
}

func TestHandleFrameRejectsUnknown(t *testing.T) {
	srv, err := New(testConfig(), bus.New(), log.NewNop())
	require.NoError(t, err)
	ctl := hoops.NewController("s", srv.config.Controller(), nil, nil)
	require.NoError(t, ctl.Start(context.Background()))
	defer ctl.Close()

	var v viewer
	assert.ErrorIs(t, srv.handleFrame(ctl, &v, protocol.Frame{Type: "jump"}), protocol.ErrUnknownFrame)
	assert.ErrorIs(t, srv.handleFrame(ctl, &v, protocol.Frame{Type: protocol.FramePlaneDetected}), protocol.ErrInvalidFrame)
	assert.ErrorIs(t, srv.handleFrame(ctl, &v, protocol.Frame{Type: protocol.FrameTap}), hoops.ErrInvalidPose)
}

func TestReserveRefusedAfterStop(t *testing.T) {
	srv, err := New(testConfig(), nil, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	require.True(t, srv.reserve())
	srv.release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	assert.False(t, srv.reserve())
	assert.Zero(t, srv.Stats().ActiveSessions)
	assert.Equal(t, uint64(1), srv.Stats().RejectedSessions)
}

func TestViewerTransformAimsShot(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	conn := dialWebSocket(t, srv)
	hello(t, conn)

	send(t, conn, protocol.PoseFrame(protocol.FrameTap, floorPose))
	assert.Equal(t, protocol.FrameSpawnHoop, receive(t, conn).Type)

	// Camera at (1, 2, 3) looking down -Z.
	send(t, conn, protocol.TransformFrame(protocol.FrameViewerPose, [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	}))
	send(t, conn, protocol.Frame{Type: protocol.FramePressBegin})
	send(t, conn, protocol.Frame{Type: protocol.FramePressEnd})

	assert.Equal(t, protocol.FrameRemoveAllShotBalls, receive(t, conn).Type)
	spawn := receive(t, conn)
	require.Equal(t, protocol.FrameSpawnBall, spawn.Type)
	require.NotNil(t, spawn.Vector)
	assert.Equal(t, physics.V(1, 2, 2), *spawn.Vector)
	impulse := receive(t, conn)
	require.NotNil(t, impulse.Vector)
	assert.Equal(t, physics.V(0, 0, -1), *impulse.Vector)
}
