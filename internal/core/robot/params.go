package robot

import (
	"errors"
	"fmt"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/sensor"
)

// ErrInvalidParams wraps Params validation failures.
var ErrInvalidParams = errors.New("invalid car parameters")

// Params describes the car body, drive and sensor mounts. Lengths are world
// units, speeds are world units per second.
type Params struct {
	Width           float64 `yaml:"width" json:"width"`
	Height          float64 `yaml:"height" json:"height"`
	TrackWidth      float64 `yaml:"track_width" json:"track_width"`
	MaxSpeed        float64 `yaml:"max_speed" json:"max_speed"`
	MaxAngularSpeed float64 `yaml:"max_angular_speed" json:"max_angular_speed"`

	// Line sensors sit LineForward ahead of the centre. The left channel is
	// mounted LineSide to starboard and the right channel LineSide to port.
	LineForward float64 `yaml:"line_forward" json:"line_forward"`
	LineSide    float64 `yaml:"line_side" json:"line_side"`

	UltrasonicForward float64 `yaml:"ultrasonic_forward" json:"ultrasonic_forward"`
	UltrasonicRange   float64 `yaml:"ultrasonic_range" json:"ultrasonic_range"`
	UltrasonicCone    float64 `yaml:"ultrasonic_cone" json:"ultrasonic_cone"`
}

// DefaultParams is the reference car: 0.3 by 0.4 with a 0.3 track.
func DefaultParams() Params {
	return Params{
		Width:             0.3,
		Height:            0.4,
		TrackWidth:        0.3,
		MaxSpeed:          2.0,
		MaxAngularSpeed:   180,
		LineForward:       0.15,
		LineSide:          0.1,
		UltrasonicForward: 0.2,
		UltrasonicRange:   sensor.DefaultMaxRange,
		UltrasonicCone:    sensor.DefaultConeDeg,
	}
}

// Validate rejects empty bodies or sensor ranges and negative speed limits.
func (p Params) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: body %.3fx%.3f", ErrInvalidParams, p.Width, p.Height)
	case p.TrackWidth <= 0:
		return fmt.Errorf("%w: track width %.3f", ErrInvalidParams, p.TrackWidth)
	case p.MaxSpeed < 0:
		return fmt.Errorf("%w: max speed %.3f", ErrInvalidParams, p.MaxSpeed)
	case p.MaxAngularSpeed < 0:
		return fmt.Errorf("%w: max angular speed %.3f", ErrInvalidParams, p.MaxAngularSpeed)
	case p.UltrasonicRange <= 0:
		return fmt.Errorf("%w: ultrasonic range %.3f", ErrInvalidParams, p.UltrasonicRange)
	case p.UltrasonicCone < 0 || p.UltrasonicCone >= 180:
		return fmt.Errorf("%w: ultrasonic cone %.1f", ErrInvalidParams, p.UltrasonicCone)
	}
	return nil
}

func (p Params) leftMount() geometry.Point  { return geometry.Pt(p.LineForward, -p.LineSide) }
func (p Params) midMount() geometry.Point   { return geometry.Pt(p.LineForward, 0) }
func (p Params) rightMount() geometry.Point { return geometry.Pt(p.LineForward, p.LineSide) }
