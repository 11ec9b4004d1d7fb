// Package hoops sequences the shot mechanic: plane sightings, the one-time hoop
// placement, charging while pressed and the launch on release.
//
// Machine is the pure core: a value whose transitions return the next value
// plus the requests the scene has to carry out. Controller hosts a Machine on a
// single goroutine and drives its ticks and timers.
package hoops

import (
	"github.com/zeusync/hoops/internal/core/charge"
	"github.com/zeusync/hoops/internal/core/physics"
	"github.com/zeusync/hoops/internal/core/placement"
	"github.com/zeusync/hoops/internal/core/shot"
)

// ErrInvalidPose is returned for taps without a hit and releases without a
// viewer pose. It is the same value as shot.ErrInvalidPose.
var ErrInvalidPose = shot.ErrInvalidPose

type Phase uint8

const (
	PhaseNoHoop Phase = iota
	PhaseIdle
	PhaseCharging
)

func (p Phase) String() string {
	switch p {
	case PhaseNoHoop:
		return "no_hoop"
	case PhaseIdle:
		return "idle"
	case PhaseCharging:
		return "charging"
	default:
		return "unknown"
	}
}

// Machine is the whole core state. The zero value is not usable; call NewMachine.
type Machine struct {
	placement placement.State
	charge    charge.Accumulator
	indicator indicator
	shots     uint64
}

type indicator struct {
	visible bool
	token   uint64
}

func NewMachine(cfg charge.Config) Machine {
	return Machine{charge: charge.New(cfg)}
}

func (m Machine) Phase() Phase {
	switch {
	case !m.placement.Placed():
		return PhaseNoHoop
	case m.charge.Active():
		return PhaseCharging
	default:
		return PhaseIdle
	}
}

func (m Machine) Power() float64 { return m.charge.Power() }

// ChargeSession returns the active session number, or 0 when not charging.
func (m Machine) ChargeSession() uint64 {
	if !m.charge.Active() {
		return 0
	}
	return m.charge.Session()
}

func (m Machine) Hoop() (physics.Pose, bool) { return m.placement.Pose() }
func (m Machine) Planes() int                { return m.placement.Planes() }
func (m Machine) IndicatorVisible() bool     { return m.indicator.visible }
func (m Machine) Shots() uint64              { return m.shots }

// DetectPlane records the plane and asks the scene to show the indicator. The
// returned token identifies this showing; only IndicatorExpired with the latest
// token hides it again.
func (m Machine) DetectPlane(id placement.PlaneID) (Machine, uint64, []Request) {
	m.placement, _ = m.placement.DetectPlane(id)
	m.indicator.token++
	m.indicator.visible = true
	return m, m.indicator.token, []Request{ShowIndicator()}
}

func (m Machine) IndicatorExpired(token uint64) (Machine, []Request) {
	if !m.indicator.visible || token != m.indicator.token {
		return m, nil
	}
	m.indicator.visible = false
	return m, []Request{HideIndicator()}
}

// Tap places the hoop at hit if none has been placed yet. Later taps report
// false and change nothing.
func (m Machine) Tap(hit physics.Pose) (Machine, bool, []Request, error) {
	if !hit.Valid() {
		return m, false, nil, ErrInvalidPose
	}
	var placed bool
	m.placement, placed = m.placement.TryPlace(hit)
	if !placed {
		return m, false, nil, nil
	}
	return m, true, []Request{SpawnHoop(hit)}, nil
}

// PressBegin opens a charge session when a hoop is placed. It returns the
// session number to schedule ticks for, or false when nothing started.
func (m Machine) PressBegin() (Machine, uint64, bool) {
	if !m.placement.Placed() {
		return m, 0, false
	}
	var (
		session uint64
		started bool
	)
	m.charge, session, started = m.charge.Start()
	return m, session, started
}

// Tick applies one charge increment for session. Ticks for any other session
// are dropped.
func (m Machine) Tick(session uint64) (Machine, bool) {
	var applied bool
	m.charge, applied = m.charge.Tick(session)
	return m, applied
}

// PressEnd closes the charge session and, given a valid viewer pose, launches a
// ball with the supplied id. Without an active session nothing is emitted and
// the returned event is nil. An unavailable viewer pose still ends the session.
func (m Machine) PressEnd(viewer physics.Pose, ballID string) (Machine, *shot.Event, []Request, error) {
	var (
		power float64
		ok    bool
	)
	m.charge, power, ok = m.charge.Stop()
	if !ok || !m.placement.Placed() {
		return m, nil, nil, nil
	}

	ev, err := shot.Compute(viewer, power)
	if err != nil {
		return m, nil, nil, err
	}
	m.shots++
	return m, &ev, []Request{
		RemoveAllShotBalls(),
		SpawnBall(ballID, ev.Origin),
		ApplyImpulse(ballID, ev.Impulse),
	}, nil
}
