package hoops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hoops/internal/core/charge"
	"github.com/zeusync/hoops/internal/core/physics"
)

var (
	floorPose  = physics.Pose{Position: physics.V(0, -1, -2), Forward: physics.V(0, 0, -1)}
	viewerPose = physics.Pose{Position: physics.V(0, 0, 0), Forward: physics.V(0, 0, -1)}
)

func placedMachine(t *testing.T) Machine {
	t.Helper()
	m := NewMachine(charge.DefaultConfig())
	m, placed, reqs, err := m.Tap(floorPose)
	require.NoError(t, err)
	require.True(t, placed)
	require.Equal(t, []Request{SpawnHoop(floorPose)}, reqs)
	return m
}

func TestFullShotCycle(t *testing.T) {
	m := placedMachine(t)
	require.Equal(t, PhaseIdle, m.Phase())

	m, session, started := m.PressBegin()
	require.True(t, started)
	require.Equal(t, PhaseCharging, m.Phase())

	m, _ = m.Tick(session)
	m, _ = m.Tick(session)

	m, ev, reqs, err := m.PressEnd(viewerPose, "ball-1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, physics.V(0, 0, -1), ev.Origin)
	assert.Equal(t, physics.V(0, 0, -3), ev.Impulse)
	assert.Equal(t, []Request{
		RemoveAllShotBalls(),
		SpawnBall("ball-1", physics.V(0, 0, -1)),
		ApplyImpulse("ball-1", physics.V(0, 0, -3)),
	}, reqs)

	assert.Equal(t, PhaseIdle, m.Phase())
	assert.Equal(t, 1.0, m.Power())
	assert.Equal(t, uint64(1), m.Shots())
}

func TestNoHoopPressIsNoop(t *testing.T) {
	m := NewMachine(charge.DefaultConfig())

	m, _, started := m.PressBegin()
	assert.False(t, started)
	assert.Equal(t, PhaseNoHoop, m.Phase())

	m, ev, reqs, err := m.PressEnd(viewerPose, "ball")
	assert.NoError(t, err)
	assert.Nil(t, ev)
	assert.Empty(t, reqs)
	assert.Equal(t, 1.0, m.Power())
}

func TestPressEndWithoutPressBegin(t *testing.T) {
	m := placedMachine(t)
	m, ev, reqs, err := m.PressEnd(viewerPose, "ball")
	assert.NoError(t, err)
	assert.Nil(t, ev)
	assert.Empty(t, reqs)
	assert.Equal(t, 1.0, m.Power())
	assert.Zero(t, m.Shots())
}

func TestSecondTapIgnored(t *testing.T) {
	m := placedMachine(t)
	other := physics.Pose{Position: physics.V(3, 0, 3), Forward: physics.V(1, 0, 0)}

	next, placed, reqs, err := m.Tap(other)
	require.NoError(t, err)
	assert.False(t, placed)
	assert.Empty(t, reqs)
	assert.Equal(t, m, next)

	hoop, ok := next.Hoop()
	require.True(t, ok)
	assert.Equal(t, floorPose, hoop)
}

func TestTapWithoutHit(t *testing.T) {
	m := NewMachine(charge.DefaultConfig())
	m, placed, reqs, err := m.Tap(physics.Pose{})
	assert.ErrorIs(t, err, ErrInvalidPose)
	assert.False(t, placed)
	assert.Empty(t, reqs)
	assert.Equal(t, PhaseNoHoop, m.Phase())
}

func TestPressEndWithLostTracking(t *testing.T) {
	m := placedMachine(t)
	m, session, _ := m.PressBegin()
	m, _ = m.Tick(session)

	m, ev, reqs, err := m.PressEnd(physics.Pose{}, "ball")
	assert.ErrorIs(t, err, ErrInvalidPose)
	assert.Nil(t, ev)
	assert.Empty(t, reqs)
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.Equal(t, 1.0, m.Power())
}

func TestTickAfterPressEndDoesNotLeak(t *testing.T) {
	m := placedMachine(t)
	m, session, _ := m.PressBegin()
	m, _ = m.Tick(session)
	m, ev, _, err := m.PressEnd(viewerPose, "ball")
	require.NoError(t, err)
	require.Equal(t, physics.V(0, 0, -2), ev.Impulse)

	m, applied := m.Tick(session)
	assert.False(t, applied)
	assert.Equal(t, 1.0, m.Power())

	// the next cycle starts from scratch
	m, next, _ := m.PressBegin()
	require.NotEqual(t, session, next)
	m, _ = m.Tick(session)
	m, _ = m.Tick(next)
	_, ev, _, err = m.PressEnd(viewerPose, "ball-2")
	require.NoError(t, err)
	assert.Equal(t, physics.V(0, 0, -2), ev.Impulse)
}

func TestIndicatorLatestTokenWins(t *testing.T) {
	m := NewMachine(charge.DefaultConfig())

	m, first, reqs := m.DetectPlane("p1")
	assert.Equal(t, []Request{ShowIndicator()}, reqs)
	m, second, _ := m.DetectPlane("p2")
	assert.True(t, m.IndicatorVisible())
	assert.Equal(t, 2, m.Planes())

	m, reqs = m.IndicatorExpired(first)
	assert.Empty(t, reqs)
	assert.True(t, m.IndicatorVisible())

	m, reqs = m.IndicatorExpired(second)
	assert.Equal(t, []Request{HideIndicator()}, reqs)
	assert.False(t, m.IndicatorVisible())

	_, reqs = m.IndicatorExpired(second)
	assert.Empty(t, reqs)
}

func TestPowerIsUnbounded(t *testing.T) {
	m := placedMachine(t)
	m, session, _ := m.PressBegin()
	for i := 0; i < 10_000; i++ {
		m, _ = m.Tick(session)
	}
	_, ev, _, err := m.PressEnd(viewerPose, "ball")
	require.NoError(t, err)
	assert.Equal(t, physics.V(0, 0, -10_001), ev.Impulse)
}

func TestZeroChargeConfigKeepsPowerAtLeastOne(t *testing.T) {
	m := NewMachine(charge.Config{})
	assert.Equal(t, 1.0, m.Power())

	m, _, _, err := m.Tap(floorPose)
	require.NoError(t, err)
	m, session, started := m.PressBegin()
	require.True(t, started)
	m, applied := m.Tick(session)
	require.True(t, applied)
	assert.Equal(t, 2.0, m.Power())

	_, ev, _, err := m.PressEnd(viewerPose, "b1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, physics.V(0, 0, -2), ev.Impulse)
}
