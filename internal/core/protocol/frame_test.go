package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/physics"
)

func TestRequestFrames(t *testing.T) {
	pose := physics.Pose{Position: physics.V(1, 0, -2), Forward: physics.V(0, 0, -1)}
	reqs := []hoops.Request{
		hoops.ShowIndicator(),
		hoops.HideIndicator(),
		hoops.SpawnHoop(pose),
		hoops.RemoveAllShotBalls(),
		hoops.SpawnBall("b1", physics.V(0, 0, -1)),
		hoops.ApplyImpulse("b1", physics.V(0, 0, -3)),
	}
	for _, req := range reqs {
		t.Run(string(req.Kind), func(t *testing.T) {
			f := RequestFrame(req)
			assert.True(t, f.IsRequest())

			data, err := json.Marshal(f)
			require.NoError(t, err)
			var decoded Frame
			require.NoError(t, json.Unmarshal(data, &decoded))

			got, err := decoded.Request()
			require.NoError(t, err)
			assert.Equal(t, req, got)
		})
	}
}

func TestFrameWireShape(t *testing.T) {
	data, err := json.Marshal(RequestFrame(hoops.ApplyImpulse("b1", physics.V(0, 0, -3))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ball.impulse","ball_id":"b1","vector":{"x":0,"y":0,"z":-3}}`, string(data))

	data, err = json.Marshal(Frame{Type: FramePressBegin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"press_begin"}`, string(data))
}

func TestRequestRejects(t *testing.T) {
	_, err := Frame{Type: FrameTap}.Request()
	assert.ErrorIs(t, err, ErrUnknownFrame)

	_, err = Frame{Type: FrameSpawnHoop}.Request()
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = Frame{Type: FrameSpawnBall, BallID: "b1"}.Request()
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = Frame{Type: FrameApplyImpulse, Vector: &physics.Vec3{}}.Request()
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestHostFramesAreNotRequests(t *testing.T) {
	for _, typ := range []FrameType{FrameHello, FramePlaneDetected, FrameTap, FrameViewerPose, FramePressBegin, FramePressEnd, FrameSession} {
		assert.False(t, Frame{Type: typ}.IsRequest(), typ)
	}
}

func TestCarriedPose(t *testing.T) {
	assert.Nil(t, Frame{Type: FrameViewerPose}.CarriedPose())

	// Camera at (1, 2, 3) looking down -Z.
	m := [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	}
	f := TransformFrame(FrameViewerPose, m)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))

	pose := decoded.CarriedPose()
	require.NotNil(t, pose)
	assert.Equal(t, physics.Pose{Position: physics.V(1, 2, 3), Forward: physics.V(0, 0, -1)}, *pose)

	explicit := physics.Pose{Forward: physics.V(1, 0, 0)}
	both := Frame{Type: FramePressEnd, Pose: &explicit, Transform: &m}
	assert.Equal(t, explicit, *both.CarriedPose())
}
