package gateway

import (
	"sync"

	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
)

var _ Gateway = (*Scene)(nil)

// Ball is the scene's view of one projectile.
type Ball struct {
	ID      string
	Origin  physics.Vec3
	Impulse physics.Vec3 // sum of applied impulses
}

// SceneSnapshot is a copy of the scene state.
type SceneSnapshot struct {
	IndicatorVisible bool
	IndicatorShows   int
	HoopPlaced       bool
	Hoop             physics.Pose
	Balls            []Ball
	BallsSpawned     int
	BallsRemoved     int
}

// Scene is an in-memory Gateway. It performs no physics; it records what a
// real host would have been asked to do and enforces the projectile contract.
type Scene struct {
	mu        sync.Mutex
	logger    log.Log
	registry  *Registry
	balls     map[string]*Ball
	indicator bool
	shows     int
	hoop      *physics.Pose
	spawned   int
	removed   int
}

func NewScene(logger log.Log) *Scene {
	if logger == nil {
		logger = log.Provide()
	}
	return &Scene{
		logger:   logger.With(log.String("component", "scene")),
		registry: NewRegistry(0),
		balls:    make(map[string]*Ball),
	}
}

func (s *Scene) ShowIndicator() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicator = true
	s.shows++
	s.logger.Debug("Plane indicator shown")
	return nil
}

func (s *Scene) HideIndicator() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicator = false
	s.logger.Debug("Plane indicator hidden")
	return nil
}

// SpawnHoop places the hoop. Later spawns are ignored and the first hoop stays.
func (s *Scene) SpawnHoop(pose physics.Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hoop != nil {
		s.logger.Warn("Hoop already in scene, ignoring spawn", log.Stringer("pose", pose))
		return nil
	}
	s.hoop = &pose
	s.logger.Info("Hoop spawned", log.Stringer("pose", pose))
	return nil
}

// SpawnBall adds a projectile. Balls still alive from earlier shots are removed
// first, so at most one shot ball is ever in flight.
func (s *Scene) SpawnBall(id string, origin physics.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.clearLocked(); n > 0 {
		s.logger.Warn("Spawn without prior clear, removed stale balls", log.Int("removed", n))
	}
	s.registry.Add(id)
	s.balls[id] = &Ball{ID: id, Origin: origin}
	s.spawned++
	s.logger.Debug("Ball spawned", log.String("ball_id", id), log.Stringer("origin", origin))
	return nil
}

func (s *Scene) ApplyImpulse(id string, impulse physics.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balls[id]
	if !ok {
		return ErrUnknownBall
	}
	b.Impulse = b.Impulse.Add(impulse)
	s.logger.Debug("Impulse applied", log.String("ball_id", id), log.Stringer("impulse", impulse))
	return nil
}

func (s *Scene) RemoveAllShotBalls() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return nil
}

func (s *Scene) clearLocked() int {
	ids := s.registry.Clear()
	for _, id := range ids {
		delete(s.balls, id)
	}
	s.removed += len(ids)
	return len(ids)
}

func (s *Scene) Snapshot() SceneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SceneSnapshot{
		IndicatorVisible: s.indicator,
		IndicatorShows:   s.shows,
		HoopPlaced:       s.hoop != nil,
		BallsSpawned:     s.spawned,
		BallsRemoved:     s.removed,
	}
	if s.hoop != nil {
		snap.Hoop = *s.hoop
	}
	for _, id := range s.registry.IDs() {
		snap.Balls = append(snap.Balls, *s.balls[id])
	}
	return snap
}
