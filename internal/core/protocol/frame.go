// Package protocol defines the JSON frames exchanged between a scene host and
// the shot service, and the Conn abstraction the transports implement.
package protocol

import (
	"fmt"

	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/physics"
)

type FrameType string

// Host to service.
const (
	FrameHello         FrameType = "hello"
	FramePlaneDetected FrameType = "plane_detected"
	FrameTap           FrameType = "tap"
	FrameViewerPose    FrameType = "viewer_pose"
	FramePressBegin    FrameType = "press_begin"
	FramePressEnd      FrameType = "press_end"
)

// Service to host. Request frames reuse the request kind as their type.
const (
	FrameSession            FrameType = "session"
	FrameShowIndicator      = FrameType(hoops.RequestShowIndicator)
	FrameHideIndicator      = FrameType(hoops.RequestHideIndicator)
	FrameSpawnHoop          = FrameType(hoops.RequestSpawnHoop)
	FrameSpawnBall          = FrameType(hoops.RequestSpawnBall)
	FrameApplyImpulse       = FrameType(hoops.RequestApplyImpulse)
	FrameRemoveAllShotBalls = FrameType(hoops.RequestRemoveAllShotBalls)
)

// Frame is the single message shape on the wire. Which fields are set depends on Type.
type Frame struct {
	Type    FrameType     `json:"type"`
	Session string        `json:"session,omitempty"`
	PlaneID string        `json:"plane_id,omitempty"`
	Pose    *physics.Pose `json:"pose,omitempty"`
	BallID  string        `json:"ball_id,omitempty"`
	Vector  *physics.Vec3 `json:"vector,omitempty"`
	// Transform is a column-major 4x4 camera transform, accepted in place of
	// Pose on tap, viewer_pose and press_end.
	Transform *[16]float64 `json:"transform,omitempty"`
}

// IsRequest reports whether the frame carries a scene request.
func (f Frame) IsRequest() bool {
	switch f.Type {
	case FrameShowIndicator, FrameHideIndicator, FrameSpawnHoop,
		FrameSpawnBall, FrameApplyImpulse, FrameRemoveAllShotBalls:
		return true
	default:
		return false
	}
}

// RequestFrame encodes a scene request.
func RequestFrame(req hoops.Request) Frame {
	f := Frame{Type: FrameType(req.Kind)}
	switch req.Kind {
	case hoops.RequestSpawnHoop:
		pose := req.Pose
		f.Pose = &pose
	case hoops.RequestSpawnBall, hoops.RequestApplyImpulse:
		v := req.Vector
		f.BallID = req.BallID
		f.Vector = &v
	}
	return f
}

// Request decodes a request frame, checking that the fields its kind needs are present.
func (f Frame) Request() (hoops.Request, error) {
	if !f.IsRequest() {
		return hoops.Request{}, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
	req := hoops.Request{Kind: hoops.RequestKind(f.Type)}
	switch req.Kind {
	case hoops.RequestSpawnHoop:
		if f.Pose == nil {
			return hoops.Request{}, fmt.Errorf("%w: %s without pose", ErrInvalidFrame, f.Type)
		}
		req.Pose = *f.Pose
	case hoops.RequestSpawnBall, hoops.RequestApplyImpulse:
		if f.BallID == "" || f.Vector == nil {
			return hoops.Request{}, fmt.Errorf("%w: %s without ball or vector", ErrInvalidFrame, f.Type)
		}
		req.BallID = f.BallID
		req.Vector = *f.Vector
	}
	return req, nil
}

// PoseFrame builds a host frame carrying a pose (tap, viewer_pose, press_end).
func PoseFrame(t FrameType, pose physics.Pose) Frame {
	return Frame{Type: t, Pose: &pose}
}

// TransformFrame builds a host frame carrying a raw camera transform.
func TransformFrame(t FrameType, m [16]float64) Frame {
	return Frame{Type: t, Transform: &m}
}

// CarriedPose returns the pose a host frame carries. Pose wins over
// Transform; nil means the frame carries neither.
func (f Frame) CarriedPose() *physics.Pose {
	switch {
	case f.Pose != nil:
		pose := *f.Pose
		return &pose
	case f.Transform != nil:
		pose := physics.PoseFromTransform(*f.Transform)
		return &pose
	default:
		return nil
	}
}
