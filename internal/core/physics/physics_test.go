package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Arithmetic(t *testing.T) {
	a := V(1, 2, 3)
	b := V(-1, 0.5, 2)

	assert.Equal(t, V(0, 2.5, 5), a.Add(b))
	assert.Equal(t, V(2, 4, 6), a.Scale(2))
	assert.Equal(t, 14.0, a.LengthSquared())
	assert.InDelta(t, 5.0, Distance(V(0, 0, 0), V(3, 4, 0)), 1e-12)
	assert.Equal(t, "(1, 2, 3)", a.String())
}

func TestPoseValid(t *testing.T) {
	tests := []struct {
		name  string
		pose  Pose
		valid bool
	}{
		{"zero pose", Pose{}, false},
		{"looking down -z", Pose{Forward: V(0, 0, -1)}, true},
		{"nan position", Pose{Position: V(math.NaN(), 0, 0), Forward: V(0, 0, -1)}, false},
		{"inf forward", Pose{Forward: V(0, math.Inf(1), 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, tt.pose.Valid())
		})
	}
}

func TestPoseFromTransform(t *testing.T) {
	// identity rotation, translated to (1, 2, 3)
	m := [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	}
	p := PoseFromTransform(m)
	assert.Equal(t, V(1, 2, 3), p.Position)
	assert.Equal(t, V(0, 0, -1), p.Forward)
}
