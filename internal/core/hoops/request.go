package hoops

import (
	"fmt"

	"github.com/zeusync/hoops/internal/core/physics"
)

// RequestKind names an action the scene host must perform. The values double
// as bus event types and wire frame types.
type RequestKind string

const (
	RequestShowIndicator      RequestKind = "indicator.show"
	RequestHideIndicator      RequestKind = "indicator.hide"
	RequestSpawnHoop          RequestKind = "hoop.spawn"
	RequestSpawnBall          RequestKind = "ball.spawn"
	RequestApplyImpulse       RequestKind = "ball.impulse"
	RequestRemoveAllShotBalls RequestKind = "ball.clear"
)

// RequestKinds lists every kind.
func RequestKinds() []RequestKind {
	return []RequestKind{
		RequestShowIndicator,
		RequestHideIndicator,
		RequestSpawnHoop,
		RequestSpawnBall,
		RequestApplyImpulse,
		RequestRemoveAllShotBalls,
	}
}

// Request is one outbound instruction for the scene. Only the fields relevant
// to Kind are set.
type Request struct {
	Kind   RequestKind
	Pose   physics.Pose // hoop.spawn
	BallID string       // ball.spawn, ball.impulse
	Vector physics.Vec3 // ball.spawn origin, ball.impulse impulse
}

func ShowIndicator() Request { return Request{Kind: RequestShowIndicator} }
func HideIndicator() Request { return Request{Kind: RequestHideIndicator} }

func SpawnHoop(pose physics.Pose) Request {
	return Request{Kind: RequestSpawnHoop, Pose: pose}
}

func SpawnBall(id string, origin physics.Vec3) Request {
	return Request{Kind: RequestSpawnBall, BallID: id, Vector: origin}
}

func ApplyImpulse(id string, impulse physics.Vec3) Request {
	return Request{Kind: RequestApplyImpulse, BallID: id, Vector: impulse}
}

func RemoveAllShotBalls() Request { return Request{Kind: RequestRemoveAllShotBalls} }

func (r Request) String() string {
	switch r.Kind {
	case RequestSpawnHoop:
		return fmt.Sprintf("%s %s", r.Kind, r.Pose)
	case RequestSpawnBall, RequestApplyImpulse:
		return fmt.Sprintf("%s %s %s", r.Kind, r.BallID, r.Vector)
	default:
		return string(r.Kind)
	}
}
