// Package charge accumulates shot power while a press is held.
//
// An Accumulator is a value. Every transition returns the next value, so the
// owner decides when a change becomes visible and nothing is shared between
// callbacks.
package charge

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultInitialPower     = 1.0
	DefaultIncrementPerTick = 1.0
	DefaultTickInterval     = 50 * time.Millisecond
)

var ErrInvalidConfig = errors.New("invalid charge configuration")

// Config holds the runtime options of a charge session.
type Config struct {
	// InitialPower is the power of a fresh session and the value power is reset to on Stop.
	InitialPower float64 `yaml:"initial_power"`
	// IncrementPerTick is added to power on every tick while the press is held.
	IncrementPerTick float64 `yaml:"increment_per_tick"`
	// TickInterval is the period of the charge ticker.
	TickInterval time.Duration `yaml:"tick_interval"`
}

func DefaultConfig() Config {
	return Config{
		InitialPower:     DefaultInitialPower,
		IncrementPerTick: DefaultIncrementPerTick,
		TickInterval:     DefaultTickInterval,
	}
}

func (c Config) Validate() error {
	if c.InitialPower < 1 {
		return fmt.Errorf("%w: initial power %g is below 1", ErrInvalidConfig, c.InitialPower)
	}
	if c.IncrementPerTick <= 0 {
		return fmt.Errorf("%w: increment %g must be positive", ErrInvalidConfig, c.IncrementPerTick)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithDefaults replaces every field that is unset or out of range with its
// default, so the zero Config behaves like DefaultConfig.
func (c Config) WithDefaults() Config {
	if c.InitialPower < DefaultInitialPower {
		c.InitialPower = DefaultInitialPower
	}
	if c.IncrementPerTick <= 0 {
		c.IncrementPerTick = DefaultIncrementPerTick
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// Accumulator tracks the power of at most one active session.
type Accumulator struct {
	cfg     Config
	active  bool
	power   float64
	session uint64
	ticks   uint64
}

// New creates an idle accumulator. Invalid fields of cfg fall back to their defaults.
func New(cfg Config) Accumulator {
	cfg = cfg.WithDefaults()
	return Accumulator{cfg: cfg, power: cfg.InitialPower}
}

func (a Accumulator) Config() Config  { return a.cfg }
func (a Accumulator) Active() bool    { return a.active }
func (a Accumulator) Power() float64  { return a.power }
func (a Accumulator) Ticks() uint64   { return a.ticks }
func (a Accumulator) Session() uint64 { return a.session }

// Start opens a new session and returns its number. If a session is already
// active the accumulator is returned unchanged with started == false.
func (a Accumulator) Start() (next Accumulator, session uint64, started bool) {
	if a.active {
		return a, a.session, false
	}
	a.active = true
	a.session++
	a.power = a.cfg.InitialPower
	a.ticks = 0
	return a, a.session, true
}

// Tick adds one increment if session is the active one. Ticks scheduled for an
// earlier session, or arriving after Stop, leave the accumulator unchanged.
func (a Accumulator) Tick(session uint64) (next Accumulator, applied bool) {
	if !a.active || session != a.session {
		return a, false
	}
	a.power += a.cfg.IncrementPerTick
	a.ticks++
	return a, true
}

// Stop closes the active session and returns its final power. Power is reset to
// the initial value. Stopping without an active session is a no-op that reports
// the initial power and ok == false.
func (a Accumulator) Stop() (next Accumulator, power float64, ok bool) {
	if !a.active {
		a.power = a.cfg.InitialPower
		return a, a.cfg.InitialPower, false
	}
	power = a.power
	a.active = false
	a.power = a.cfg.InitialPower
	a.ticks = 0
	return a, power, true
}
