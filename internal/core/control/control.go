// Package control defines how controllers drive the car and the avoidance
// gate they share.
package control

import (
	"github.com/zeusync/robosim/internal/core/robot"
)

// DefaultStopDistance is the ultrasonic reading below which controllers hold.
const DefaultStopDistance = 0.4

// Controller sets the car's motor commands once per tick, before the car is
// updated.
type Controller interface {
	UpdateControl(car *robot.Car, dt float64)
}

// Resetter is implemented by controllers that keep per-activation state.
type Resetter interface {
	Reset()
}

// Gate answers the two safety questions every controller asks.
type Gate struct {
	world        robot.World
	stopDistance float64
}

// NewGate builds a gate over w. A non-positive stopDistance uses
// DefaultStopDistance.
func NewGate(w robot.World, stopDistance float64) *Gate {
	if stopDistance <= 0 {
		stopDistance = DefaultStopDistance
	}
	return &Gate{world: w, stopDistance: stopDistance}
}

func (g *Gate) StopDistance() float64 { return g.stopDistance }

// IsCollisionImminent reports whether the last ultrasonic reading is closer
// than the stop distance.
func (g *Gate) IsCollisionImminent(car *robot.Car) bool {
	return car.Ultrasonic().Value() < g.stopDistance
}

// IsMoveSafe reports whether applying left/right for dt would keep the body
// clear of obstacles.
func (g *Gate) IsMoveSafe(car *robot.Car, left, right, dt float64) bool {
	return !g.world.IsColliding(car.Propose(left, right, dt).Bounds)
}
