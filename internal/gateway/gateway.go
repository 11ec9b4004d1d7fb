// Package gateway defines the contract the scene host fulfils for the shot
// core, and ships an in-memory scene implementing it.
package gateway

import (
	"errors"
	"fmt"

	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/physics"
)

var (
	ErrUnknownBall    = errors.New("unknown ball")
	ErrUnknownRequest = errors.New("unknown request kind")
)

// Gateway is the scene host: it owns rendering, physics bodies and the set of
// live projectiles. Before spawning a ball it must have removed every earlier
// shot ball; the core asks for that with RemoveAllShotBalls on every shot.
type Gateway interface {
	ShowIndicator() error
	HideIndicator() error
	SpawnHoop(pose physics.Pose) error
	SpawnBall(id string, origin physics.Vec3) error
	ApplyImpulse(id string, impulse physics.Vec3) error
	RemoveAllShotBalls() error
}

// Dispatch routes one request to the matching gateway call.
func Dispatch(gw Gateway, req hoops.Request) error {
	switch req.Kind {
	case hoops.RequestShowIndicator:
		return gw.ShowIndicator()
	case hoops.RequestHideIndicator:
		return gw.HideIndicator()
	case hoops.RequestSpawnHoop:
		return gw.SpawnHoop(req.Pose)
	case hoops.RequestSpawnBall:
		return gw.SpawnBall(req.BallID, req.Vector)
	case hoops.RequestApplyImpulse:
		return gw.ApplyImpulse(req.BallID, req.Vector)
	case hoops.RequestRemoveAllShotBalls:
		return gw.RemoveAllShotBalls()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRequest, req.Kind)
	}
}

// Bind subscribes gw to every request kind published on topic. Cancel the
// returned subscriptions (or remove the topic) to detach it.
func Bind(b bus.EventBus, topic string, gw Gateway) ([]bus.Subscription, error) {
	handler := func(e bus.Event) error {
		req, ok := e.Data().(hoops.Request)
		if !ok {
			return fmt.Errorf("%w: payload %T", ErrUnknownRequest, e.Data())
		}
		return Dispatch(gw, req)
	}

	subs := make([]bus.Subscription, 0, len(hoops.RequestKinds()))
	for _, kind := range hoops.RequestKinds() {
		sub, err := b.SubscribeTopic(topic, string(kind), handler)
		if err != nil {
			for _, s := range subs {
				_ = s.Cancel()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
