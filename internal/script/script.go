// Package script runs scripted AR sessions: a YAML list of input steps played
// against a Driver, either a remote server through the SDK client or a local
// controller.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/core/physics"
)

var ErrInvalidStep = errors.New("invalid step")

// Driver receives the scripted input.
type Driver interface {
	PlaneDetected(ctx context.Context, planeID string) error
	Tap(ctx context.Context, hit physics.Pose) error
	ViewerPose(ctx context.Context, pose physics.Pose) error
	ViewerTransform(ctx context.Context, m [16]float64) error
	LoseTracking(ctx context.Context) error
	PressBegin(ctx context.Context) error
	PressEnd(ctx context.Context) error
}

type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one input. Exactly one field is set.
type Step struct {
	Plane  string        `yaml:"plane,omitempty"`
	Tap    *physics.Pose `yaml:"tap,omitempty"`
	Miss   bool          `yaml:"miss,omitempty"`
	Viewer *physics.Pose `yaml:"viewer,omitempty"`
	// ViewerTransform is a column-major 4x4 camera transform.
	ViewerTransform []float64     `yaml:"viewer_transform,omitempty"`
	LoseTracking    bool          `yaml:"lose_tracking,omitempty"`
	Press           bool          `yaml:"press,omitempty"`
	Wait            time.Duration `yaml:"wait,omitempty"`
	Release         bool          `yaml:"release,omitempty"`
}

// Kind names the step for logs and errors.
func (s Step) Kind() string {
	switch {
	case s.Plane != "":
		return "plane"
	case s.Tap != nil:
		return "tap"
	case s.Miss:
		return "miss"
	case s.Viewer != nil:
		return "viewer"
	case s.ViewerTransform != nil:
		return "viewer_transform"
	case s.LoseTracking:
		return "lose_tracking"
	case s.Press:
		return "press"
	case s.Wait > 0:
		return "wait"
	case s.Release:
		return "release"
	default:
		return "empty"
	}
}

func (s Step) Validate() error {
	set := 0
	for _, ok := range []bool{
		s.Plane != "", s.Tap != nil, s.Miss, s.Viewer != nil, s.ViewerTransform != nil,
		s.LoseTracking, s.Press, s.Wait > 0, s.Release,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %d actions set, want 1", ErrInvalidStep, set)
	}
	if s.ViewerTransform != nil && len(s.ViewerTransform) != 16 {
		return fmt.Errorf("%w: viewer_transform has %d values, want 16", ErrInvalidStep, len(s.ViewerTransform))
	}
	if s.Wait < 0 {
		return fmt.Errorf("%w: negative wait", ErrInvalidStep)
	}
	return nil
}

func (s Step) apply(ctx context.Context, d Driver) error {
	switch s.Kind() {
	case "plane":
		return d.PlaneDetected(ctx, s.Plane)
	case "tap":
		return d.Tap(ctx, *s.Tap)
	case "miss":
		return d.Tap(ctx, physics.Pose{})
	case "viewer":
		return d.ViewerPose(ctx, *s.Viewer)
	case "viewer_transform":
		var m [16]float64
		copy(m[:], s.ViewerTransform)
		return d.ViewerTransform(ctx, m)
	case "lose_tracking":
		return d.LoseTracking(ctx)
	case "press":
		return d.PressBegin(ctx)
	case "release":
		return d.PressEnd(ctx)
	case "wait":
		t := time.NewTimer(s.Wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	default:
		return ErrInvalidStep
	}
}

func Load(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return Script{}, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return s, nil
}

// Run plays the steps in order. Input rejected for an unavailable pose is
// logged and skipped, as a live session would; any other error stops the run.
func Run(ctx context.Context, s Script, d Driver, logger log.Log) error {
	if logger == nil {
		logger = log.Provide()
	}
	logger = logger.With(log.String("component", "script"), log.String("script", s.Name))
	logger.Info("Script started", log.Int("steps", len(s.Steps)))

	for i, step := range s.Steps {
		logger.Debug("Step", log.Int("index", i+1), log.String("kind", step.Kind()))
		if err := step.apply(ctx, d); err != nil {
			if errors.Is(err, hoops.ErrInvalidPose) {
				logger.Warn("Step skipped", log.Int("index", i+1), log.String("kind", step.Kind()), log.Error(err))
				continue
			}
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}

	logger.Info("Script finished")
	return nil
}
