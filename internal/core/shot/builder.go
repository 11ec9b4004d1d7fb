// Package shot turns a release pose and a charge into the ball's launch parameters.
package shot

import (
	"errors"
	"math"

	"github.com/zeusync/hoops/internal/core/physics"
)

var (
	// ErrInvalidPose means the viewer or hit pose is unavailable (tracking lost,
	// empty hit-test). Callers skip the action and wait for the next event.
	ErrInvalidPose  = errors.New("pose unavailable")
	ErrInvalidPower = errors.New("power is not finite")
)

// Event describes one launch. It is consumed by the scene and not retained.
type Event struct {
	Origin  physics.Vec3 `json:"origin"`
	Impulse physics.Vec3 `json:"impulse"`
}

// Compute places the ball one forward step ahead of the viewer and scales the
// forward vector by power. Forward is used as given, not normalized.
func Compute(viewer physics.Pose, power float64) (Event, error) {
	if !viewer.Valid() {
		return Event{}, ErrInvalidPose
	}
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return Event{}, ErrInvalidPower
	}
	return Event{
		Origin:  viewer.Position.Add(viewer.Forward),
		Impulse: viewer.Forward.Scale(power),
	}, nil
}
