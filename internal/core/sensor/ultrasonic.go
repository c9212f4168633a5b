package sensor

import (
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
)

const (
	DefaultMaxRange = 4.0
	DefaultConeDeg  = 30.0
)

// Ultrasonic casts three rays (centre and both cone edges) and reports the
// distance to the nearest obstacle hit, or MaxRange when nothing is hit.
type Ultrasonic struct {
	name     string
	mount    geometry.Point
	maxRange float64
	coneDeg  float64

	value float64
	rays  [3]geometry.Segment
}

// NewUltrasonic mounts a distance sensor that casts three rays over a cone of
// coneDeg degrees.
func NewUltrasonic(name string, mount geometry.Point, maxRange, coneDeg float64) *Ultrasonic {
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	return &Ultrasonic{
		name:     name,
		mount:    mount,
		maxRange: maxRange,
		coneDeg:  coneDeg,
		value:    maxRange,
	}
}

func (u *Ultrasonic) Name() string          { return u.name }
func (u *Ultrasonic) Mount() geometry.Point { return u.mount }
func (u *Ultrasonic) Value() float64        { return u.value }
func (u *Ultrasonic) MaxRange() float64     { return u.maxRange }

// Rays returns the segments cast on the last update, each clipped at its hit.
func (u *Ultrasonic) Rays() [3]geometry.Segment { return u.rays }

// Update casts the rays from the current mount position and keeps the
// shortest hit, or the maximum range.
func (u *Ultrasonic) Update(body Body, env Environment, _ float64) {
	origin := body.LocalToWorld(u.mount)
	heading := body.Heading()
	half := u.coneDeg / 2

	best := u.maxRange
	for i, angle := range [3]float64{heading, heading - half, heading + half} {
		dir := geometry.Heading(angle)
		end := geometry.Pt(origin.X+dir.X*u.maxRange, origin.Y+dir.Y*u.maxRange)
		ray := u.maxRange
		for _, o := range env.Obstacles() {
			hit, ok := o.Intersection(origin, end)
			if !ok {
				continue
			}
			if d := geometry.Distance(origin, hit); d < ray {
				ray = d
			}
		}
		u.rays[i] = geometry.Segment{
			A: origin,
			B: geometry.Pt(origin.X+dir.X*ray, origin.Y+dir.Y*ray),
		}
		best = math.Min(best, ray)
	}
	u.value = best
}

var _ Sensor = (*Ultrasonic)(nil)
