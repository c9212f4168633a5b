// Package sensor models the car's line and distance sensors. A sensor is
// mounted at a fixed point in the body frame (X forward, Y to port) and
// samples the environment when updated.
package sensor

import (
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

// Body is the frame a sensor is attached to.
type Body interface {
	LocalToWorld(local geometry.Point) geometry.Point
	Heading() float64
}

// Environment is what a sensor can observe.
type Environment interface {
	IsOnLine(p geometry.Point) bool
	Obstacles() []world.Obstacle
}

// Sensor is a single sampled input. Value reflects the body pose at the last
// Update.
type Sensor interface {
	Name() string
	Mount() geometry.Point
	Update(body Body, env Environment, dt float64)
	Value() float64
}

// Line reports 1 when the point under it lies on the path and 0 otherwise.
type Line struct {
	name  string
	mount geometry.Point
	value float64
}

// NewLine mounts a line sensor at mount in the body frame.
func NewLine(name string, mount geometry.Point) *Line {
	return &Line{name: name, mount: mount}
}

func (l *Line) Name() string          { return l.name }
func (l *Line) Mount() geometry.Point { return l.mount }
func (l *Line) Value() float64        { return l.value }

// Position returns the world position of the sensor for body.
func (l *Line) Position(body Body) geometry.Point { return body.LocalToWorld(l.mount) }

func (l *Line) Update(body Body, env Environment, _ float64) {
	if env.IsOnLine(l.Position(body)) {
		l.value = 1
		return
	}
	l.value = 0
}

var _ Sensor = (*Line)(nil)
