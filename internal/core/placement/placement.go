// Package placement records detected planes and the single hoop placement of a session.
package placement

import (
	"maps"

	"github.com/zeusync/hoops/internal/core/physics"
)

type PlaneID string

// State is either Empty or Placed(pose). Once placed it never reverts and
// there is no removal operation.
type State struct {
	placed bool
	pose   physics.Pose
	planes map[PlaneID]struct{}
}

func (s State) Placed() bool { return s.placed }

// Pose returns the hoop pose and whether a hoop has been placed.
func (s State) Pose() (physics.Pose, bool) { return s.pose, s.placed }

// Planes reports how many distinct candidate planes have been seen.
func (s State) Planes() int { return len(s.planes) }

// DetectPlane records a candidate target area. fresh is false when the plane
// was already known.
func (s State) DetectPlane(id PlaneID) (next State, fresh bool) {
	if _, ok := s.planes[id]; ok {
		return s, false
	}
	planes := maps.Clone(s.planes)
	if planes == nil {
		planes = make(map[PlaneID]struct{}, 1)
	}
	planes[id] = struct{}{}
	s.planes = planes
	return s, true
}

// TryPlace moves Empty to Placed(hit) and returns true. Any later call returns
// false and leaves the state untouched.
func (s State) TryPlace(hit physics.Pose) (next State, placed bool) {
	if s.placed {
		return s, false
	}
	s.placed = true
	s.pose = hit
	return s, true
}
