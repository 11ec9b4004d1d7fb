package hoops

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/hoops/internal/core/charge"
	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
	"github.com/zeusync/hoops/internal/core/placement"
	"github.com/zeusync/hoops/internal/core/shot"
)

const DefaultIndicatorDuration = 3 * time.Second

// Config holds controller configuration
type Config struct {
	Charge charge.Config
	// IndicatorDuration is how long the plane indicator stays up after a detection.
	IndicatorDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		Charge:            charge.DefaultConfig(),
		IndicatorDuration: DefaultIndicatorDuration,
	}
}

// PoseSource supplies the viewer pose at release time. ok is false while
// tracking is lost.
type PoseSource interface {
	ViewerPose() (pose physics.Pose, ok bool)
}

type PoseSourceFunc func() (physics.Pose, bool)

func (f PoseSourceFunc) ViewerPose() (physics.Pose, bool) { return f() }

// Snapshot is a read-only view of a controller's machine.
type Snapshot struct {
	Phase            Phase
	Power            float64
	Planes           int
	HoopPlaced       bool
	Hoop             physics.Pose
	IndicatorVisible bool
	Shots            uint64
}

type Option func(*Controller)

// WithTopic publishes requests on topic instead of the controller id.
func WithTopic(topic string) Option {
	return func(c *Controller) { c.topic = topic }
}

func WithLogger(logger log.Log) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithBallIDs replaces the UUID generator used for projectile ids.
func WithBallIDs(next func() string) Option {
	return func(c *Controller) { c.newBallID = next }
}

type commandKind uint8

const (
	cmdPlane commandKind = iota
	cmdTap
	cmdPressBegin
	cmdPressEnd
	cmdTick
	cmdIndicatorExpired
	cmdSnapshot
)

type command struct {
	kind    commandKind
	plane   placement.PlaneID
	pose    physics.Pose
	session uint64
	token   uint64
	reply   chan result
}

type result struct {
	placed   bool
	started  bool
	shot     *shot.Event
	snapshot Snapshot
	err      error
}

// Controller runs one Machine on its own goroutine. Every input, including
// charge ticks and indicator timeouts, is applied on that goroutine in arrival
// order, so ending a press and reading its power cannot interleave with a tick.
type Controller struct {
	id        string
	topic     string
	config    Config
	bus       bus.EventBus
	poses     PoseSource
	logger    log.Log
	newBallID func() string

	inbox     chan command
	quit      chan struct{}
	done      chan struct{}
	started   int32 // atomic bool
	closeOnce sync.Once

	// owned by the loop goroutine
	machine        Machine
	tickStop       chan struct{}
	indicatorTimer *time.Timer
}

// NewController creates a controller publishing its requests to b on the
// topic named id.
func NewController(id string, config Config, b bus.EventBus, poses PoseSource, opts ...Option) *Controller {
	if config.IndicatorDuration <= 0 {
		config.IndicatorDuration = DefaultIndicatorDuration
	}
	config.Charge = config.Charge.WithDefaults()
	if poses == nil {
		poses = PoseSourceFunc(func() (physics.Pose, bool) { return physics.Pose{}, false })
	}

	c := &Controller{
		id:        id,
		topic:     id,
		config:    config,
		bus:       b,
		poses:     poses,
		logger:    log.Provide(),
		newBallID: uuid.NewString,
		inbox:     make(chan command, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		machine:   NewMachine(config.Charge),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(log.String("component", "controller"), log.String("session", id))
	return c
}

func (c *Controller) ID() string    { return c.id }
func (c *Controller) Topic() string { return c.topic }

// Start launches the event loop. It stops when ctx is done or Close is called.
func (c *Controller) Start(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrControllerClosed
	default:
	}
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return ErrControllerStarted
	}
	go c.loop(ctx)
	return nil
}

// Close stops the loop, the charge ticker and any pending indicator timer.
// It is safe to call more than once and before Start.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		if atomic.CompareAndSwapInt32(&c.started, 0, 1) {
			// never started: nothing will close done
			close(c.done)
		}
	})
	<-c.done
	return nil
}

// Done is closed once the loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// OnPlaneDetected records a candidate plane and shows the indicator for the
// configured duration.
func (c *Controller) OnPlaneDetected(id string) error {
	_, err := c.call(command{kind: cmdPlane, plane: placement.PlaneID(id)})
	return err
}

// OnTap places the hoop at hit. It reports false once a hoop exists.
func (c *Controller) OnTap(hit physics.Pose) (bool, error) {
	r, err := c.call(command{kind: cmdTap, pose: hit})
	if err != nil {
		return false, err
	}
	return r.placed, r.err
}

// OnPressBegin starts charging. It reports false when no hoop is placed or a
// charge is already running.
func (c *Controller) OnPressBegin() (bool, error) {
	r, err := c.call(command{kind: cmdPressBegin})
	if err != nil {
		return false, err
	}
	return r.started, nil
}

// OnPressEnd stops charging and launches the ball. The event is nil when no
// charge session was active.
func (c *Controller) OnPressEnd() (*shot.Event, error) {
	r, err := c.call(command{kind: cmdPressEnd})
	if err != nil {
		return nil, err
	}
	return r.shot, r.err
}

func (c *Controller) Snapshot() (Snapshot, error) {
	r, err := c.call(command{kind: cmdSnapshot})
	return r.snapshot, err
}

func (c *Controller) call(cmd command) (result, error) {
	if atomic.LoadInt32(&c.started) == 0 {
		return result{}, ErrControllerNotStarted
	}
	cmd.reply = make(chan result, 1)
	select {
	case c.inbox <- cmd:
	case <-c.done:
		return result{}, ErrControllerClosed
	}
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-c.done:
		select {
		case r := <-cmd.reply:
			return r, nil
		default:
			return result{}, ErrControllerClosed
		}
	}
}

// post enqueues an internal command without waiting for it to be applied.
func (c *Controller) post(cmd command) {
	select {
	case c.inbox <- cmd:
	case <-c.done:
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)
	defer c.teardown()

	c.logger.Debug("Controller loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case cmd := <-c.inbox:
			c.handle(cmd)
		}
	}
}

func (c *Controller) handle(cmd command) {
	var r result
	switch cmd.kind {
	case cmdPlane:
		var (
			token uint64
			reqs  []Request
		)
		c.machine, token, reqs = c.machine.DetectPlane(cmd.plane)
		c.logger.Debug("Plane detected",
			log.String("plane_id", string(cmd.plane)),
			log.Int("planes", c.machine.Planes()))
		c.publish(reqs)
		c.scheduleIndicatorHide(token)

	case cmdIndicatorExpired:
		var reqs []Request
		c.machine, reqs = c.machine.IndicatorExpired(cmd.token)
		c.publish(reqs)

	case cmdTap:
		var reqs []Request
		c.machine, r.placed, reqs, r.err = c.machine.Tap(cmd.pose)
		switch {
		case r.err != nil:
			c.logger.Debug("Tap ignored", log.Error(r.err))
		case r.placed:
			c.logger.Info("Hoop placed", log.Stringer("pose", cmd.pose))
		}
		c.publish(reqs)

	case cmdPressBegin:
		var session uint64
		c.machine, session, r.started = c.machine.PressBegin()
		if r.started {
			c.startTicker(session)
		}

	case cmdTick:
		c.machine, _ = c.machine.Tick(cmd.session)

	case cmdPressEnd:
		c.stopTicker()
		power := c.machine.Power()
		viewer, ok := c.poses.ViewerPose()
		if !ok {
			viewer = physics.Pose{}
		}
		var reqs []Request
		c.machine, r.shot, reqs, r.err = c.machine.PressEnd(viewer, c.newBallID())
		switch {
		case r.err != nil:
			c.logger.Warn("Shot skipped", log.Float64("power", power), log.Error(r.err))
		case r.shot != nil:
			hoop, _ := c.machine.Hoop()
			c.logger.Info("Shot launched",
				log.Float64("power", power),
				log.Float64("hoop_distance", physics.Distance(r.shot.Origin, hoop.Position)),
				log.Stringer("origin", r.shot.Origin),
				log.Stringer("impulse", r.shot.Impulse))
		}
		c.publish(reqs)

	case cmdSnapshot:
		hoop, placed := c.machine.Hoop()
		r.snapshot = Snapshot{
			Phase:            c.machine.Phase(),
			Power:            c.machine.Power(),
			Planes:           c.machine.Planes(),
			HoopPlaced:       placed,
			Hoop:             hoop,
			IndicatorVisible: c.machine.IndicatorVisible(),
			Shots:            c.machine.Shots(),
		}
	}

	if cmd.reply != nil {
		cmd.reply <- r
	}
}

func (c *Controller) publish(reqs []Request) {
	if len(reqs) == 0 || c.bus == nil {
		return
	}
	events := make([]bus.Event, len(reqs))
	for i, req := range reqs {
		events[i] = bus.NewEvent(string(req.Kind), c.id, req, nil)
	}
	if err := c.bus.PublishBatch(c.topic, events...); err != nil {
		c.logger.Warn("Scene rejected request", log.Error(err))
	}
}

func (c *Controller) startTicker(session uint64) {
	c.stopTicker()
	stop := make(chan struct{})
	c.tickStop = stop
	interval := c.config.Charge.TickInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case c.inbox <- command{kind: cmdTick, session: session}:
				case <-stop:
					return
				case <-c.done:
					return
				}
			case <-stop:
				return
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Controller) stopTicker() {
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
}

func (c *Controller) scheduleIndicatorHide(token uint64) {
	if c.indicatorTimer != nil {
		c.indicatorTimer.Stop()
	}
	c.indicatorTimer = time.AfterFunc(c.config.IndicatorDuration, func() {
		c.post(command{kind: cmdIndicatorExpired, token: token})
	})
}

func (c *Controller) teardown() {
	c.stopTicker()
	if c.indicatorTimer != nil {
		c.indicatorTimer.Stop()
		c.indicatorTimer = nil
	}
	c.machine.charge, _, _ = c.machine.charge.Stop()
	c.logger.Debug("Controller loop stopped")
}
