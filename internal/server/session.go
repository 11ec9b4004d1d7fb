package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
	"github.com/zeusync/hoops/internal/core/protocol"
	"github.com/zeusync/hoops/internal/gateway"
)

// handshaker is implemented by transports that must accept a stream before
// frames can flow.
type handshaker interface {
	Handshake(ctx context.Context) error
}

// viewer holds the latest viewer pose reported by the host.
type viewer struct {
	pose atomic.Pointer[physics.Pose]
}

// set stores pose; nil means tracking is lost.
func (v *viewer) set(pose *physics.Pose) {
	if pose == nil {
		v.pose.Store(nil)
		return
	}
	p := *pose
	v.pose.Store(&p)
}

func (v *viewer) ViewerPose() (physics.Pose, bool) {
	p := v.pose.Load()
	if p == nil {
		return physics.Pose{}, false
	}
	return *p, p.Valid()
}

// remoteGateway forwards scene requests to the host as frames.
type remoteGateway struct {
	ctx  context.Context
	conn protocol.Conn
}

var _ gateway.Gateway = remoteGateway{}

func (g remoteGateway) send(req hoops.Request) error {
	return g.conn.WriteFrame(g.ctx, protocol.RequestFrame(req))
}

func (g remoteGateway) ShowIndicator() error { return g.send(hoops.ShowIndicator()) }
func (g remoteGateway) HideIndicator() error { return g.send(hoops.HideIndicator()) }

func (g remoteGateway) SpawnHoop(pose physics.Pose) error {
	return g.send(hoops.SpawnHoop(pose))
}

func (g remoteGateway) SpawnBall(id string, origin physics.Vec3) error {
	return g.send(hoops.SpawnBall(id, origin))
}

func (g remoteGateway) ApplyImpulse(id string, impulse physics.Vec3) error {
	return g.send(hoops.ApplyImpulse(id, impulse))
}

func (g remoteGateway) RemoveAllShotBalls() error { return g.send(hoops.RemoveAllShotBalls()) }

// serveConn runs one session until the host disconnects or ctx is done. The
// caller has already reserved a session slot.
func (s *Server) serveConn(ctx context.Context, conn protocol.Conn) {
	defer conn.Close()

	logger := s.logger.With(
		log.String("transport", conn.Transport()),
		log.String("remote_addr", conn.RemoteAddr()))

	if err := s.handshake(ctx, conn); err != nil {
		logger.Warn("Handshake failed", log.Error(err))
		return
	}

	id := uuid.NewString()
	logger = logger.With(log.String("session", id))
	if err := conn.WriteFrame(ctx, protocol.Frame{Type: protocol.FrameSession, Session: id}); err != nil {
		logger.Warn("Failed to send session frame", log.Error(err))
		return
	}

	_ = s.bus.CreateTopic(id)
	defer func() { _ = s.bus.RemoveTopic(id) }()
	if _, err := gateway.Bind(s.bus, id, remoteGateway{ctx: ctx, conn: conn}); err != nil {
		logger.Error("Failed to bind gateway", log.Error(err))
		return
	}

	var pose viewer
	ctl := hoops.NewController(id, s.config.Controller(), s.bus, &pose, hoops.WithLogger(s.root))
	if err := ctl.Start(ctx); err != nil {
		logger.Error("Failed to start controller", log.Error(err))
		return
	}
	defer ctl.Close()

	s.total.Add(1)
	logger.Info("Session started", log.Int64("active_sessions", s.active.Load()))
	defer logger.Info("Session ended")

	for {
		f, err := conn.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidFrame) {
				logger.Warn("Dropping malformed frame", log.Error(err))
				continue
			}
			if ctx.Err() == nil && !errors.Is(err, protocol.ErrConnectionClosed) {
				logger.Warn("Failed to read frame", log.Error(err))
			}
			return
		}

		if err = s.handleFrame(ctl, &pose, f); err != nil {
			if errors.Is(err, hoops.ErrControllerClosed) {
				return
			}
			logger.Warn("Frame rejected", log.String("type", string(f.Type)), log.Error(err))
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn protocol.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Server.HandshakeTimeout)
	defer cancel()

	if h, ok := conn.(handshaker); ok {
		if err := h.Handshake(ctx); err != nil {
			return err
		}
	}
	f, err := conn.ReadFrame(ctx)
	if err != nil {
		return errors.Join(protocol.ErrHandshake, err)
	}
	if f.Type != protocol.FrameHello {
		return fmt.Errorf("%w: expected %s, got %q", protocol.ErrHandshake, protocol.FrameHello, f.Type)
	}
	return nil
}

func (s *Server) handleFrame(ctl *hoops.Controller, pose *viewer, f protocol.Frame) error {
	switch f.Type {
	case protocol.FramePlaneDetected:
		if f.PlaneID == "" {
			return fmt.Errorf("%w: %s without plane_id", protocol.ErrInvalidFrame, f.Type)
		}
		return ctl.OnPlaneDetected(f.PlaneID)

	case protocol.FrameTap:
		var hit physics.Pose
		if p := f.CarriedPose(); p != nil {
			hit = *p
		}
		_, err := ctl.OnTap(hit)
		return err

	case protocol.FrameViewerPose:
		pose.set(f.CarriedPose())
		return nil

	case protocol.FramePressBegin:
		_, err := ctl.OnPressBegin()
		return err

	case protocol.FramePressEnd:
		if p := f.CarriedPose(); p != nil {
			pose.set(p)
		}
		ev, err := ctl.OnPressEnd()
		if ev != nil {
			s.shots.Add(1)
		}
		return err

	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownFrame, f.Type)
	}
}
