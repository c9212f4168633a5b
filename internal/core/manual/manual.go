// Package manual drives the car from held keys, with an ultrasonic
// bounce-back and a veto on any command that would run the body into an
// obstacle.
package manual

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robosim/internal/core/control"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/robot"
)

// ErrInvalidConfig wraps Config validation failures.
var ErrInvalidConfig = errors.New("invalid manual config")

var (
	_ control.Controller = (*Controller)(nil)
	_ control.Resetter   = (*Controller)(nil)
)

// Config tunes keyboard driving and obstacle recovery.
type Config struct {
	TurnBias          float64 `yaml:"turn_bias" json:"turn_bias"`
	ReverseSpeed      float64 `yaml:"reverse_speed" json:"reverse_speed"`
	ReverseDuration   float64 `yaml:"reverse_duration" json:"reverse_duration"`
	RecoveryThreshold float64 `yaml:"recovery_threshold" json:"recovery_threshold"`
	// StopDistance of zero uses control.DefaultStopDistance.
	StopDistance float64 `yaml:"stop_distance" json:"stop_distance"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		TurnBias:          0.5,
		ReverseSpeed:      0.5,
		ReverseDuration:   0.6,
		RecoveryThreshold: 0.35,
		StopDistance:      control.DefaultStopDistance,
	}
}

// Validate checks ranges; durations are in seconds.
func (c Config) Validate() error {
	switch {
	case c.TurnBias < 0 || c.TurnBias > 1:
		return fmt.Errorf("%w: turn bias %.2f not in [0,1]", ErrInvalidConfig, c.TurnBias)
	case c.ReverseSpeed < 0 || c.ReverseSpeed > 1:
		return fmt.Errorf("%w: reverse speed %.2f not in [0,1]", ErrInvalidConfig, c.ReverseSpeed)
	case c.ReverseDuration < 0:
		return fmt.Errorf("%w: reverse duration %.2f", ErrInvalidConfig, c.ReverseDuration)
	case c.RecoveryThreshold < 0:
		return fmt.Errorf("%w: recovery threshold %.2f", ErrInvalidConfig, c.RecoveryThreshold)
	case c.StopDistance < 0 || math.IsNaN(c.StopDistance):
		return fmt.Errorf("%w: stop distance %.2f", ErrInvalidConfig, c.StopDistance)
	}
	return nil
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l log.Log) Option {
	return func(c *Controller) { c.log = l }
}

// Controller maps held keys to motor commands and backs away from obstacles
// the gate reports.
type Controller struct {
	cfg   Config
	gate  *control.Gate
	input Input
	log   log.Log

	recovering   bool
	reverseTimer float64
}

// New builds a manual controller reading keys from input.
func New(cfg Config, gate *control.Gate, input Input, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, gate: gate, input: input, log: log.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(log.String("component", "manual"))
	return c
}

// Reset ends any recovery in progress.
func (c *Controller) Reset() {
	c.recovering = false
	c.reverseTimer = 0
}

func (c *Controller) Recovering() bool { return c.recovering }

// UpdateControl maps held keys to motor commands.
//
// An ultrasonic reading under the stop distance starts a recovery: the car
// reverses for ReverseDuration, then holds until the reading exceeds
// RecoveryThreshold. Forward input is ignored for the whole recovery.
// Reversing by hand past the threshold ends it early.
func (c *Controller) UpdateControl(car *robot.Car, dt float64) {
	dist := car.Ultrasonic().Value()

	if !c.recovering && dist < c.cfg.StopDistance {
		c.recovering = true
		c.reverseTimer = c.cfg.ReverseDuration
		c.log.Info("collision imminent, bouncing back", log.Float64("distance", dist))
	}

	if c.recovering {
		if c.reverseTimer > 0 {
			c.reverseTimer -= dt
			c.apply(car, -c.cfg.ReverseSpeed, -c.cfg.ReverseSpeed, dt)
			return
		}
		if dist > c.cfg.RecoveryThreshold {
			c.recovering = false
			c.log.Info("path cleared, resuming manual control", log.Float64("distance", dist))
		}
	}

	forward := c.input.Pressed(KeyForward) && !c.recovering
	backward := c.input.Pressed(KeyBackward)

	var left, right float64
	switch {
	case forward:
		left, right = 1, 1
	case backward:
		left, right = -1, -1
		if c.recovering && dist > c.cfg.RecoveryThreshold {
			c.recovering = false
		}
	}

	bias := c.turnBias(car.Params())
	switch {
	case c.input.Pressed(KeyLeft):
		left -= bias
		right += bias
	case c.input.Pressed(KeyRight):
		left += bias
		right -= bias
	}

	c.apply(car, left, right, dt)
}

// turnBias caps the configured bias so an in-place turn stays within the
// car's maximum angular speed.
func (c *Controller) turnBias(p robot.Params) float64 {
	bias := c.cfg.TurnBias
	if p.MaxAngularSpeed <= 0 || p.MaxSpeed <= 0 {
		return bias
	}
	limit := geometry.Radians(p.MaxAngularSpeed) * p.TrackWidth / (2 * p.MaxSpeed)
	return math.Min(bias, limit)
}

func (c *Controller) apply(car *robot.Car, left, right, dt float64) {
	if !c.gate.IsMoveSafe(car, left, right, dt) {
		left, right = 0, 0
	}
	car.SetMotorSpeeds(left, right)
}
