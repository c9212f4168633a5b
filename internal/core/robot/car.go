// Package robot implements the differential-drive car: pose, motors, mounted
// sensors and the collision-gated kinematic update.
package robot

import (
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/sensor"
)

const (
	SensorLeft       = "line_left"
	SensorMid        = "line_mid"
	SensorRight      = "line_right"
	SensorUltrasonic = "ultrasonic"
)

// Pose is the car centre and heading in degrees, counter-clockwise from +X.
// Heading is never wrapped.
type Pose struct {
	X       float64 `yaml:"x" json:"x"`
	Y       float64 `yaml:"y" json:"y"`
	Heading float64 `yaml:"heading" json:"heading"`
}

func (p Pose) Position() geometry.Point { return geometry.Pt(p.X, p.Y) }

// Motor holds a normalised speed in [-1, 1].
type Motor struct {
	speed float64
}

func (m *Motor) Set(v float64)  { m.speed = clamp(v) }
func (m *Motor) Speed() float64 { return m.speed }

// Step is a proposed pose and the body bounds it would occupy.
type Step struct {
	Pose   Pose
	Bounds geometry.Rect
}

// World is what the car moves through.
type World interface {
	sensor.Environment
	IsColliding(r geometry.Rect) bool
}

// Car is a differential-drive body with three line sensors and an
// ultrasonic sensor. It is not safe for concurrent use.
type Car struct {
	params Params
	pose   Pose

	left, right Motor

	leftLine, midLine, rightLine *sensor.Line
	ultrasonic                   *sensor.Ultrasonic
	sensors                      []sensor.Sensor
}

// New builds a car at start with motors stopped. Sensor readings are zero
// until the first Sense or Update.
func New(params Params, start Pose) *Car {
	c := &Car{
		params:     params,
		pose:       start,
		leftLine:   sensor.NewLine(SensorLeft, params.leftMount()),
		midLine:    sensor.NewLine(SensorMid, params.midMount()),
		rightLine:  sensor.NewLine(SensorRight, params.rightMount()),
		ultrasonic: sensor.NewUltrasonic(SensorUltrasonic, geometry.Pt(params.UltrasonicForward, 0), params.UltrasonicRange, params.UltrasonicCone),
	}
	c.sensors = []sensor.Sensor{c.leftLine, c.midLine, c.rightLine, c.ultrasonic}
	return c
}

// SetMotorSpeeds stores clamped normalised wheel commands.
func (c *Car) SetMotorSpeeds(left, right float64) {
	c.left.Set(left)
	c.right.Set(right)
}

// MotorSpeeds returns the normalised commands set last.
func (c *Car) MotorSpeeds() (left, right float64) { return c.left.Speed(), c.right.Speed() }

// Propose integrates one forward-Euler step from the current pose for the
// given commands without touching the car. Translation uses the heading held
// before the step. Bounds are axis aligned regardless of heading.
func (c *Car) Propose(left, right, dt float64) Step {
	vl := clamp(left) * c.params.MaxSpeed
	vr := clamp(right) * c.params.MaxSpeed
	v := (vl + vr) / 2
	omega := geometry.Degrees((vr - vl) / c.params.TrackWidth)

	rad := geometry.Radians(c.pose.Heading)
	next := Pose{
		X:       c.pose.X + v*math.Cos(rad)*dt,
		Y:       c.pose.Y + v*math.Sin(rad)*dt,
		Heading: c.pose.Heading + omega*dt,
	}
	return Step{
		Pose:   next,
		Bounds: geometry.CenteredAt(next.Position(), c.params.Width, c.params.Height),
	}
}

// Update advances the car by dt with the stored motor commands. The step is
// committed only if the new bounds are clear of every obstacle; position and
// heading are rejected together. Sensors are refreshed either way. It
// reports whether the step was committed.
func (c *Car) Update(dt float64, w World) bool {
	step := c.Propose(c.left.Speed(), c.right.Speed(), dt)
	committed := !w.IsColliding(step.Bounds)
	if committed {
		c.pose = step.Pose
	}
	c.Sense(w)
	return committed
}

// Sense refreshes every sensor at the current pose.
func (c *Car) Sense(env sensor.Environment) {
	for _, s := range c.sensors {
		s.Update(c, env, 0)
	}
}

// LocalToWorld maps a body-frame point (X forward, Y to port) to the world.
func (c *Car) LocalToWorld(local geometry.Point) geometry.Point {
	r := geometry.Rotate(local, c.pose.Heading)
	return geometry.Pt(c.pose.X+r.X, c.pose.Y+r.Y)
}

// Bounds returns the current axis-aligned body rectangle.
func (c *Car) Bounds() geometry.Rect {
	return geometry.CenteredAt(c.pose.Position(), c.params.Width, c.params.Height)
}

func (c *Car) Pose() Pose             { return c.pose }
func (c *Car) X() float64             { return c.pose.X }
func (c *Car) Y() float64             { return c.pose.Y }
func (c *Car) Heading() float64       { return c.pose.Heading }
func (c *Car) Params() Params         { return c.params }
func (c *Car) SetHeading(deg float64) { c.pose.Heading = deg }

func (c *Car) LeftLine() *sensor.Line         { return c.leftLine }
func (c *Car) MidLine() *sensor.Line          { return c.midLine }
func (c *Car) RightLine() *sensor.Line        { return c.rightLine }
func (c *Car) Ultrasonic() *sensor.Ultrasonic { return c.ultrasonic }

// Sensors returns left, mid, right line and the ultrasonic, in that order.
func (c *Car) Sensors() []sensor.Sensor { return c.sensors }

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
