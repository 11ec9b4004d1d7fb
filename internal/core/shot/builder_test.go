package shot

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hoops/internal/core/physics"
)

func TestComputeStraightAhead(t *testing.T) {
	ev, err := Compute(physics.Pose{Position: physics.V(0, 0, 0), Forward: physics.V(0, 0, -1)}, 3)
	require.NoError(t, err)
	assert.Equal(t, physics.V(0, 0, -1), ev.Origin)
	assert.Equal(t, physics.V(0, 0, -3), ev.Impulse)
}

func TestComputeUsesForwardMagnitude(t *testing.T) {
	ev, err := Compute(physics.Pose{Position: physics.V(1, 1, 1), Forward: physics.V(0, 0, -2)}, 1)
	require.NoError(t, err)
	assert.Equal(t, physics.V(1, 1, -1), ev.Origin)
	assert.Equal(t, physics.V(0, 0, -2), ev.Impulse)
}

func TestComputeRejectsUnavailablePose(t *testing.T) {
	_, err := Compute(physics.Pose{}, 2)
	assert.ErrorIs(t, err, ErrInvalidPose)

	_, err = Compute(physics.Pose{Position: physics.V(math.NaN(), 0, 0), Forward: physics.V(0, 0, -1)}, 2)
	assert.ErrorIs(t, err, ErrInvalidPose)
}

func TestComputeRejectsNonFinitePower(t *testing.T) {
	pose := physics.Pose{Forward: physics.V(0, 0, -1)}
	_, err := Compute(pose, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidPower)
	_, err = Compute(pose, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidPower)
}

func TestComputeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := func() float64 { return rng.Float64()*20 - 10 }

	for i := 0; i < 1000; i++ {
		pose := physics.Pose{
			Position: physics.V(r(), r(), r()),
			Forward:  physics.V(r(), r(), r()),
		}
		if !pose.Valid() {
			continue
		}
		power := 1 + rng.Float64()*50

		a, err := Compute(pose, power)
		require.NoError(t, err)
		b, err := Compute(pose, power)
		require.NoError(t, err)

		// bit-identical on repeat
		require.Equal(t, math.Float64bits(a.Origin.X), math.Float64bits(b.Origin.X))
		require.Equal(t, math.Float64bits(a.Impulse.Z), math.Float64bits(b.Impulse.Z))
		require.Equal(t, a, b)

		require.Equal(t, pose.Position.X+pose.Forward.X, a.Origin.X)
		require.Equal(t, pose.Position.Y+pose.Forward.Y, a.Origin.Y)
		require.Equal(t, pose.Position.Z+pose.Forward.Z, a.Origin.Z)
		require.Equal(t, pose.Forward.X*power, a.Impulse.X)
		require.Equal(t, pose.Forward.Y*power, a.Impulse.Y)
		require.Equal(t, pose.Forward.Z*power, a.Impulse.Z)
	}
}
