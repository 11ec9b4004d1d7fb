package physics

import "fmt"

// Pose is a position plus the direction the observer faces. The forward
// vector is expected to be unit length but is never normalized here: the shot
// math uses its magnitude as given.
type Pose struct {
	Position Vec3 `json:"position" yaml:"position"`
	Forward  Vec3 `json:"forward" yaml:"forward"`
}

// Valid reports whether the pose can be used. The zero Pose is invalid and
// stands for "unavailable" (tracking lost, empty hit-test).
func (p Pose) Valid() bool {
	return p.Position.IsFinite() && p.Forward.IsFinite() && !p.Forward.IsZero()
}

func (p Pose) String() string {
	return fmt.Sprintf("pos=%s fwd=%s", p.Position, p.Forward)
}

// PoseFromTransform extracts a pose from a column-major 4x4 camera transform
// (the layout AR frameworks hand out). The camera looks down its -Z axis, so
// forward is the negated third column.
func PoseFromTransform(m [16]float64) Pose {
	return Pose{
		Position: Vec3{X: m[12], Y: m[13], Z: m[14]},
		Forward:  Vec3{X: -m[8], Y: -m[9], Z: -m[10]},
	}
}
