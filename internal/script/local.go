package script

import (
	"context"
	"sync"

	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/physics"
)

var _ Driver = (*Local)(nil)

// Local drives an in-process controller, with no server in between.
type Local struct {
	ctl    *hoops.Controller
	viewer viewerPose
}

// viewerPose is the controller's pose source; nil means tracking is lost.
type viewerPose struct {
	mu   sync.Mutex
	pose *physics.Pose
}

func (v *viewerPose) set(pose *physics.Pose) {
	v.mu.Lock()
	v.pose = pose
	v.mu.Unlock()
}

func (v *viewerPose) ViewerPose() (physics.Pose, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pose == nil {
		return physics.Pose{}, false
	}
	return *v.pose, v.pose.Valid()
}

// NewLocal creates a controller for session id publishing on b.
func NewLocal(id string, cfg hoops.Config, b bus.EventBus, opts ...hoops.Option) *Local {
	l := &Local{}
	l.ctl = hoops.NewController(id, cfg, b, &l.viewer, opts...)
	return l
}

func (l *Local) Controller() *hoops.Controller { return l.ctl }

func (l *Local) Start(ctx context.Context) error { return l.ctl.Start(ctx) }
func (l *Local) Close() error                    { return l.ctl.Close() }

func (l *Local) PlaneDetected(_ context.Context, planeID string) error {
	return l.ctl.OnPlaneDetected(planeID)
}

func (l *Local) Tap(_ context.Context, hit physics.Pose) error {
	_, err := l.ctl.OnTap(hit)
	return err
}

func (l *Local) ViewerPose(_ context.Context, pose physics.Pose) error {
	l.viewer.set(&pose)
	return nil
}

func (l *Local) ViewerTransform(_ context.Context, m [16]float64) error {
	pose := physics.PoseFromTransform(m)
	l.viewer.set(&pose)
	return nil
}

func (l *Local) LoseTracking(context.Context) error {
	l.viewer.set(nil)
	return nil
}

func (l *Local) PressBegin(context.Context) error {
	_, err := l.ctl.OnPressBegin()
	return err
}

func (l *Local) PressEnd(context.Context) error {
	_, err := l.ctl.OnPressEnd()
	return err
}
